// Package blockchain holds the thin chain-facing helpers the gateway needs:
// deriving the provider identity from its ECDSA key, signing and sending
// transactions, and checking whether a URL points back at this provider.
package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EVMClient wraps a connected ethclient.Client.
type EVMClient struct {
	Client *ethclient.Client
}

// Dial connects to an EVM RPC endpoint.
func Dial(endpoint string) (*EVMClient, error) {
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		zap.L().Error("failed to connect to evm endpoint", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}
	return &EVMClient{Client: client}, nil
}

// SignAndSend signs tx with key for the connected chain and submits it.
// Returns the signed transaction so callers can wait on it.
func (evm *EVMClient) SignAndSend(ctx context.Context, tx *types.Transaction, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	chainID, err := evm.Client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := evm.Client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}
	return signed, nil
}

// SignSendAndWait submits tx and blocks until it is mined, bounded by ctx.
func (evm *EVMClient) SignSendAndWait(ctx context.Context, tx *types.Transaction, key *ecdsa.PrivateKey) (*types.Receipt, error) {
	signed, err := evm.SignAndSend(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	return bind.WaitMined(ctx, evm.Client, signed)
}

// PendingNonce returns the next usable nonce for the key's address.
func (evm *EVMClient) PendingNonce(ctx context.Context, key *ecdsa.PrivateKey) (uint64, error) {
	addr := GetAddressFromPrivateKeyECDSA(key)
	if addr == nil {
		return 0, fmt.Errorf("cannot derive address from key")
	}
	return evm.Client.PendingNonceAt(ctx, *addr)
}
