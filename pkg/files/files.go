// Package files recovers a service's file locations from its on-chain
// encrypted blob and resolves individual descriptors into download URLs.
// Decryption itself is delegated to a Decryptor collaborator; this package
// owns the two payload schemas and their structural checks.
package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/model"
)

// legacyAssetVersion is the last schema generation whose decrypted payload is
// the bare file list. Later versions wrap the list in an address-bound envelope.
const legacyAssetVersion = "4.0.0"

// ErrNoGateway is returned when an ipfs-typed descriptor is resolved without
// a configured gateway. This is a deployment error, not a bad descriptor.
var ErrNoGateway = errors.New("no IPFS gateway defined, can not resolve ipfs hash")

// Decryptor is the external decryption capability keyed to the provider
// identity. Implementations are opaque to this package.
type Decryptor interface {
	DecryptHex(blob string) ([]byte, error)
}

// DecryptorFunc adapts a function to the Decryptor interface.
type DecryptorFunc func(blob string) ([]byte, error)

// DecryptHex calls f.
func (f DecryptorFunc) DecryptHex(blob string) ([]byte, error) {
	return f(blob)
}

// filesEnvelope is the versioned decrypted payload: the file list bound to
// the datatoken and NFT addresses it was published for.
type filesEnvelope struct {
	DatatokenAddress string          `json:"datatokenAddress"`
	NFTAddress       string          `json:"nftAddress"`
	Files            json.RawMessage `json:"files"`
}

// GetServiceFiles decrypts and validates a service's file list. The asset
// version selects the payload schema: assets at or before 4.0.0 (or an absent
// asset) carry the bare list, later versions carry an envelope whose
// addresses must match the service and asset records.
//
// Any failure (decryption, malformed JSON, missing keys, address mismatch)
// is logged and surfaces as nil. Callers must treat nil as "files
// unavailable", which is distinct from an empty list.
func GetServiceFiles(service model.Service, dec Decryptor, asset *model.Asset) []model.FileObject {
	if asset == nil || asset.Version == "" || asset.Version == legacyAssetVersion {
		return legacyServiceFiles(service, dec)
	}

	files, err := versionedServiceFiles(service, dec, asset)
	if err != nil {
		zap.L().Error("Error decrypting service files",
			zap.String("serviceID", service.ID),
			zap.Error(err))
		return nil
	}
	return files
}

func legacyServiceFiles(service model.Service, dec Decryptor) []model.FileObject {
	plaintext, err := dec.DecryptHex(service.EncryptedFiles)
	if err != nil || len(plaintext) == 0 {
		zap.L().Error("Error decrypting service files",
			zap.String("serviceID", service.ID),
			zap.Error(err))
		return nil
	}
	zap.L().Debug("Got decrypted files payload", zap.Int("bytes", len(plaintext)))

	files, err := model.DecodeFilesList(plaintext)
	if err != nil {
		zap.L().Error("Error decrypting service files",
			zap.String("serviceID", service.ID),
			zap.Error(err))
		return nil
	}
	return files
}

func versionedServiceFiles(service model.Service, dec Decryptor, asset *model.Asset) ([]model.FileObject, error) {
	plaintext, err := dec.DecryptHex(service.EncryptedFiles)
	if err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		return nil, errors.New("empty decrypted payload")
	}

	var envelope filesEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return nil, fmt.Errorf("decoding files envelope: %w", err)
	}

	if envelope.DatatokenAddress == "" || envelope.NFTAddress == "" || len(envelope.Files) == 0 {
		return nil, errors.New("missing required key in files envelope")
	}

	if err := compareAddresses(envelope.DatatokenAddress, service.DatatokenAddress); err != nil {
		return nil, fmt.Errorf("mismatch of datatoken: %w", err)
	}
	if err := compareAddresses(envelope.NFTAddress, asset.NFTAddress); err != nil {
		return nil, fmt.Errorf("mismatch of dataNft: %w", err)
	}

	return model.DecodeFilesList(envelope.Files)
}

// compareAddresses checks checksum-canonical equality of two hex addresses,
// i.e. case differences don't matter but the underlying bytes must match.
func compareAddresses(got, want string) error {
	if !common.IsHexAddress(got) || !common.IsHexAddress(want) {
		return fmt.Errorf("invalid address: got %s vs expected %s", got, want)
	}
	if common.HexToAddress(got) != common.HexToAddress(want) {
		return fmt.Errorf("got %s vs expected %s", got, want)
	}
	return nil
}

// ResolveDownloadURL turns a file descriptor into the URL it is fetched from.
// URL-typed descriptors are used verbatim. IPFS-typed descriptors are joined
// onto the configured gateway base as <gateway>/ipfs/<hash>; an absent
// gateway is an error. The hash is checked as a CID but a parse failure only
// logs; historical descriptors carry values the CID codec rejects.
func ResolveDownloadURL(fo *model.FileObject, gateway string) (string, error) {
	if fo.Type != model.TypeIpfs {
		return fo.URL, nil
	}

	if gateway == "" {
		return "", ErrNoGateway
	}

	if _, err := cid.Parse(fo.Hash); err != nil {
		zap.L().Info("ipfs hash does not parse as a CID",
			zap.String("hash", fo.Hash),
			zap.Error(err))
	}

	joined, err := url.JoinPath(gateway, "ipfs", fo.Hash)
	if err != nil {
		return "", fmt.Errorf("joining gateway url: %w", err)
	}
	return joined, nil
}
