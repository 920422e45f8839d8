// Package provider wires the gateway's collaborators into one Core: the DNS
// safety checker, the remote-file prober, the streaming downloader, the
// file-list decryptor, asset storage and the provider's chain identity.
package provider

import (
	"context"
	"crypto/ecdsa"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/blockchain"
	"github.com/datariver/provider-go/pkg/config"
	"github.com/datariver/provider-go/pkg/encryption"
	"github.com/datariver/provider-go/pkg/fetch"
	"github.com/datariver/provider-go/pkg/files"
	"github.com/datariver/provider-go/pkg/model"
	"github.com/datariver/provider-go/pkg/storage"
	"github.com/datariver/provider-go/pkg/urlcheck"
)

// init configures a default global zap logger. Applications may replace it
// with zap.ReplaceGlobals(...) if they need custom logging.
func init() {
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := c.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

// Core is the assembled provider gateway. All collaborators are stateless
// and safe for concurrent use; one Core serves all requests.
type Core struct {
	*config.Config

	address common.Address
	prvKey  *ecdsa.PrivateKey

	checker    *urlcheck.Checker
	prober     *fetch.Prober
	downloader *fetch.Downloader
	decryptor  *encryption.ECIESDecryptor
	store      *storage.Client
}

// New validates cfg, derives the provider identity from its private key and
// constructs all collaborators.
func New(cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Timeouts = cfg.Timeouts.WithDefaults()

	address, prvKey, err := blockchain.ParsePrivateKeyECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	decryptor, err := encryption.NewECIESDecryptor(prvKey)
	if err != nil {
		return nil, err
	}

	resolver, err := urlcheck.NewDNSResolver(cfg.Timeouts.DNS)
	if err != nil {
		return nil, err
	}

	checker := urlcheck.NewChecker(resolver, nil, cfg.AllowNonPublicIP)
	if cfg.AllowNonPublicIP {
		zap.L().Warn("non-public IP ranges are allowed; do not run this in production")
	}

	core := &Core{
		Config:     cfg,
		address:    address,
		prvKey:     prvKey,
		checker:    checker,
		prober:     fetch.NewProber(checker, nil, cfg.IpfsGateway, cfg.RequestRetries, cfg.Timeouts.Probe),
		downloader: fetch.NewDownloader(checker, cfg.IpfsGateway, cfg.Timeouts.Download),
		decryptor:  decryptor,
		store:      storage.NewClient(cfg.IpfsAPIAddr, cfg.IpfsGateway),
	}

	if cfg.Debug {
		zap.L().Debug("provider address", zap.String("addr", address.Hex()))
	}
	return core, nil
}

// Address returns the provider's identity address.
func (c *Core) Address() common.Address {
	return c.address
}

// IsSafeURL reports whether rawURL may be fetched under the gateway's
// network-safety policy.
func (c *Core) IsSafeURL(ctx context.Context, rawURL string) bool {
	return c.checker.IsSafeURL(ctx, rawURL)
}

// CheckFile probes the descriptor's origin for content metadata, optionally
// computing a SHA-256 over the body.
func (c *Core) CheckFile(ctx context.Context, fo *model.FileObject, withChecksum bool) (model.FileDetails, bool) {
	return c.prober.CheckURLDetails(ctx, fo, withChecksum)
}

// ServiceFiles decrypts and decodes the service's file list. Returns nil when
// the list cannot be recovered or does not belong to the asset.
func (c *Core) ServiceFiles(service model.Service, asset *model.Asset) []model.FileObject {
	return files.GetServiceFiles(service, c.decryptor, asset)
}

// ServeDownload streams the descriptor's content to the client, validating
// the download URL first.
func (c *Core) ServeDownload(w http.ResponseWriter, r *http.Request, fo *model.FileObject, contentType string) error {
	return c.downloader.BuildDownloadResponse(w, r, fo, contentType, true)
}

// Asset fetches and decodes an asset document by its identifier.
func (c *Core) Asset(ctx context.Context, id string) (*model.Asset, error) {
	return c.store.ReadAsset(ctx, id)
}

// PublishAsset stores an asset document on the configured IPFS node and
// returns its ipfs:// URI.
func (c *Core) PublishAsset(ctx context.Context, asset *model.Asset) (string, error) {
	return c.store.StoreDocument(ctx, asset)
}

// SameProvider reports whether the service answering at rawURL is this
// provider.
func (c *Core) SameProvider(ctx context.Context, rawURL string) bool {
	return blockchain.IsSameProvider(ctx, nil, rawURL, c.address)
}

// Sign produces a personal-sign signature over message with the provider key.
func (c *Core) Sign(message []byte) ([]byte, error) {
	return blockchain.SignMessage(message, c.prvKey)
}
