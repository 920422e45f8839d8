package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/model"
)

// IpfsPrefix is the URI scheme prefix recognized for document identifiers.
const IpfsPrefix = "ipfs://"

const documentTimeout = 60 * time.Second

// DocumentStore retrieves asset documents by content identifier.
type DocumentStore interface {
	ReadDocument(ctx context.Context, id string) ([]byte, error)
}

// nodeFetcher reads a blob through a Kubo node's HTTP API.
type nodeFetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// gatewayFetcher reads a blob through a public HTTP gateway.
type gatewayFetcher interface {
	Fetch(ctx context.Context, gateway, id string) ([]byte, error)
}

// Client reads asset documents from IPFS, preferring a configured Kubo node
// over the HTTP gateway.
type Client struct {
	api        *rpc.HttpApi
	gatewayURL string

	node    nodeFetcher
	gateway gatewayFetcher
}

// NewClient constructs a storage client. apiAddr points at a Kubo HTTP API
// (may be empty); gatewayURL is an IPFS HTTP gateway used when no node is
// available. A failed node connection is logged and the client falls back to
// the gateway.
func NewClient(apiAddr, gatewayURL string) *Client {
	c := &Client{gatewayURL: gatewayURL}
	if apiAddr != "" {
		api, err := NewIPFSClient(apiAddr)
		if err != nil {
			zap.L().Error("cannot connect to ipfs node, falling back to gateway",
				zap.String("addr", apiAddr), zap.Error(err))
		} else {
			c.api = api
		}
	}
	c.node = newNodeFetcher(c.api)
	c.gateway = httpGatewayFetcher{}
	return c
}

// ReadDocument fetches the raw document bytes for id. The id is normalized
// with FormatID before retrieval.
func (c *Client) ReadDocument(ctx context.Context, id string) ([]byte, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), documentTimeout)
		defer cancel()
	}

	id = FormatID(id)

	if c.api != nil {
		return c.node.Fetch(ctx, id)
	}
	if c.gatewayURL == "" {
		return nil, fmt.Errorf("no ipfs node or gateway configured")
	}
	return c.gateway.Fetch(ctx, c.gatewayURL, id)
}

// ReadAsset fetches and decodes an asset document.
func (c *Client) ReadAsset(ctx context.Context, id string) (*model.Asset, error) {
	raw, err := c.ReadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	var asset model.Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return nil, fmt.Errorf("decoding asset document %s: %w", id, err)
	}
	return &asset, nil
}

// FormatID strips the ipfs:// prefix and any characters that cannot appear
// in a CID, producing a clean identifier for the underlying backends.
func FormatID(id string) string {
	id = strings.Replace(id, IpfsPrefix, "", -1)
	return cidCharset.ReplaceAllString(id, "")
}

var cidCharset = regexp.MustCompile("[^a-zA-Z0-9=]")
