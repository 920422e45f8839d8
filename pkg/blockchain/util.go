package blockchain

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// HashPrefix32Bytes is the Ethereum personal-sign prefix for 32-byte
// messages: "\x19Ethereum Signed Message:\n32".
var HashPrefix32Bytes = []byte("\x19Ethereum Signed Message:\n32")

// GetAddressFromPrivateKeyECDSA derives the Ethereum address from the given
// ECDSA private key. It returns nil if the key is nil or its public part
// cannot be asserted to *ecdsa.PublicKey.
func GetAddressFromPrivateKeyECDSA(privateKeyECDSA *ecdsa.PrivateKey) *common.Address {
	if privateKeyECDSA == nil {
		return nil
	}
	publicKeyECDSA, ok := privateKeyECDSA.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil
	}
	addr := crypto.PubkeyToAddress(*publicKeyECDSA)
	return &addr
}

// ParsePrivateKeyECDSA parses a hex-encoded ECDSA private key and returns the
// corresponding Ethereum address together with the private key object.
func ParsePrivateKeyECDSA(privateKey string) (common.Address, *ecdsa.PrivateKey, error) {
	privateKeyECDSA, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return common.Address{}, nil, err
	}

	publicKeyECDSA, ok := privateKeyECDSA.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, nil, errors.New("failed to get public key")
	}

	address := crypto.PubkeyToAddress(*publicKeyECDSA)
	return address, privateKeyECDSA, nil
}

// MsgHash returns the hex-encoded SHA-256 of message.
func MsgHash(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// SignMessage produces an Ethereum personal-sign signature over message:
// keccak256(prefix || keccak256(message)) signed with the provider key.
// Returns the 65-byte signature (R||S||V).
func SignMessage(message []byte, privateKeyECDSA *ecdsa.PrivateKey) ([]byte, error) {
	hash := crypto.Keccak256(
		HashPrefix32Bytes,
		crypto.Keccak256(message),
	)

	signature, err := crypto.Sign(hash, privateKeyECDSA)
	if err != nil {
		zap.L().Error("failed to sign message", zap.Error(err))
		return nil, err
	}
	return signature, nil
}

// IsSameProvider reports whether the provider answering at rawURL's root
// advertises selfAddr as its identity. Unreachable hosts and answers without
// a providerAddress field count as a different provider.
func IsSameProvider(ctx context.Context, client *http.Client, rawURL string, selfAddr common.Address) bool {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	root := fmt.Sprintf("%s://%s/", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		zap.L().Info("provider root unreachable", zap.String("url", root), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var info struct {
		ProviderAddress string `json:"providerAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false
	}
	if info.ProviderAddress == "" {
		return false
	}
	return strings.EqualFold(info.ProviderAddress, selfAddr.Hex())
}
