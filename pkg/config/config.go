// Package config defines the runtime configuration for the provider gateway:
// network-safety policy, IPFS gateway settings, outbound request behavior,
// chain RPC endpoint, and operation timeouts. It also provides validation and
// defaulting helpers.
package config

import (
	"errors"
	"time"
)

// Config holds all settings required to initialize the provider core.
// Use Validate to fill implicit defaults and to check for required fields.
type Config struct {
	// PrivateKey is the hex-encoded ECDSA private key of the provider identity.
	// It decrypts on-chain service file lists and derives the provider address
	// (required).
	PrivateKey string `json:"private_key" yaml:"private_key"`
	// RPCAddr is the Ethereum RPC/WS endpoint URL. Optional: only the thin
	// transaction helpers need it; the download core never touches the chain.
	RPCAddr string `json:"rpc_addr" yaml:"rpc_addr"`
	// IpfsGateway is the HTTP gateway base used to resolve ipfs-typed file
	// descriptors into download URLs. Required only when such descriptors are
	// actually served.
	IpfsGateway string `json:"ipfs_gateway" yaml:"ipfs_gateway"`
	// IpfsAPIAddr is the HTTP API endpoint of an IPFS (Kubo) node used to read
	// asset documents directly. Default: http://localhost:5001
	IpfsAPIAddr string `json:"ipfs_api_addr" yaml:"ipfs_api_addr"`
	// AllowNonPublicIP accepts URLs that resolve to private, loopback or
	// reserved address space. Off by default; enabling it is only meant for
	// local development and is logged loudly.
	AllowNonPublicIP bool `json:"allow_non_public_ip" yaml:"allow_non_public_ip"`
	// RequestRetries is how many times a remote file probe is retried while
	// the origin answers with a non-200 status. Default: 1.
	RequestRetries int `json:"request_retries" yaml:"request_retries"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" yaml:"debug"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults for defaults.
	Timeouts Timeouts `json:"timeouts" yaml:"timeouts"`
}

// Timeouts controls outbound request deadlines.
// Zero values will be replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Probe       time.Duration // lightweight HEAD/OPTIONS probes and redirect hops
	Download    time.Duration // establishing the heavyweight download request
	DNS         time.Duration // single DNS query
	Dial        time.Duration // chain RPC dial
	ChainSubmit time.Duration // send tx
	ReceiptWait time.Duration // wait tx
}

// Validate normalizes the configuration by applying implicit defaults for
// IpfsAPIAddr and RequestRetries and verifies that PrivateKey is provided.
// Returns an error when PrivateKey is empty.
func (c *Config) Validate() error {

	if c.IpfsAPIAddr == "" {
		c.IpfsAPIAddr = "http://localhost:5001"
	}

	if c.RequestRetries <= 0 {
		c.RequestRetries = 1
	}

	if c.PrivateKey == "" {
		return errors.New("provider private key is required")
	}

	return nil
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Probe:       3s
//	Download:    3s
//	DNS:         3s
//	Dial:        5s
//	ChainSubmit: 25s
//	ReceiptWait: 90s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Probe == 0 {
		tt.Probe = 3 * time.Second
	}
	if tt.Download == 0 {
		tt.Download = 3 * time.Second
	}
	if tt.DNS == 0 {
		tt.DNS = 3 * time.Second
	}
	if tt.Dial == 0 {
		tt.Dial = 5 * time.Second
	}
	if tt.ChainSubmit == 0 {
		tt.ChainSubmit = 25 * time.Second
	}
	if tt.ReceiptWait == 0 {
		tt.ReceiptWait = 90 * time.Second
	}
	return tt
}
