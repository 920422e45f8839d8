package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// httpGatewayFetcher reads documents through a public IPFS HTTP gateway.
type httpGatewayFetcher struct{}

// Fetch performs a GET against {gateway}/ipfs/{id} and returns the body.
func (httpGatewayFetcher) Fetch(ctx context.Context, gateway, id string) ([]byte, error) {
	target, err := url.JoinPath(gateway, "ipfs", id)
	if err != nil {
		return nil, fmt.Errorf("building gateway url: %w", err)
	}
	zap.L().Debug("fetching document from gateway", zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %d for %s", resp.StatusCode, id)
	}
	return io.ReadAll(resp.Body)
}
