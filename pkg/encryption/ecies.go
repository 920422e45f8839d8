// Package encryption implements the decryption capability backing the
// provider's file-list recovery: service file lists are published on-chain
// encrypted to the provider's public key (ECIES over secp256k1) and only the
// holder of the provider private key can recover them.
package encryption

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// ECIESDecryptor decrypts blobs addressed to one provider identity. It holds
// no per-call state and is safe for concurrent use.
type ECIESDecryptor struct {
	key *ecies.PrivateKey
}

// NewECIESDecryptor wraps the provider's ECDSA key for ECIES decryption.
func NewECIESDecryptor(privateKey *ecdsa.PrivateKey) (*ECIESDecryptor, error) {
	if privateKey == nil {
		return nil, errors.New("private key is required")
	}
	return &ECIESDecryptor{key: ecies.ImportECDSA(privateKey)}, nil
}

// Decrypt recovers the plaintext of an ECIES ciphertext.
func (d *ECIESDecryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := d.key.Decrypt(ciphertext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ecies decrypt: %w", err)
	}
	return plaintext, nil
}

// DecryptHex decrypts a hex-encoded ciphertext as stored on-chain. A leading
// 0x prefix is accepted; input that is not valid hex is treated as raw bytes,
// matching how historical records were published.
func (d *ECIESDecryptor) DecryptHex(blob string) ([]byte, error) {
	trimmed := strings.TrimPrefix(blob, "0x")
	ciphertext, err := hex.DecodeString(trimmed)
	if err != nil {
		ciphertext = []byte(blob)
	}
	return d.Decrypt(ciphertext)
}
