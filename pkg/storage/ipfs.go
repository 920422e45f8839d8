package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"
)

// ipfsNode is the Kubo-backed nodeFetcher.
type ipfsNode struct {
	api *rpc.HttpApi
}

func newNodeFetcher(api *rpc.HttpApi) nodeFetcher {
	return &ipfsNode{api: api}
}

// Fetch retrieves content by CID with `ipfs cat`. The id must parse as a
// valid CID; malformed document identifiers are rejected before any request
// is issued.
func (n *ipfsNode) Fetch(ctx context.Context, id string) (content []byte, err error) {
	if n.api == nil {
		return nil, fmt.Errorf("ipfs node not configured")
	}

	cID, err := cid.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", id, err)
	}

	resp, err := n.api.Request("cat", cID.String()).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", cID, err)
	}
	defer func(resp *rpc.Response) {
		if cerr := resp.Close(); cerr != nil {
			zap.L().Error("error closing ipfs response", zap.String("cid", id), zap.Error(cerr))
		}
	}(resp)

	if resp.Error != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", cID, resp.Error)
	}

	content, err = io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("reading ipfs response for %s: %w", cID, err)
	}
	return content, nil
}

// StoreDocument serializes data to JSON and adds it to the configured node.
// Returns the document URI (ipfs://<hash>) on success.
func (c *Client) StoreDocument(ctx context.Context, data interface{}) (string, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), documentTimeout)
		defer cancel()
	}

	if c.api == nil {
		return "", fmt.Errorf("ipfs node not configured")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	req := c.api.Request("add")
	req.Body(bytes.NewReader(payload))

	resp, err := req.Send(ctx)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	defer func(resp *rpc.Response) {
		if cerr := resp.Close(); cerr != nil {
			zap.L().Error("error closing ipfs response", zap.Error(cerr))
		}
	}(resp)

	if resp.Error != nil {
		return "", fmt.Errorf("ipfs add: %w", resp.Error)
	}

	body, err := io.ReadAll(resp.Output)
	if err != nil {
		return "", err
	}

	var addResp struct {
		Hash string `json:"Hash"`
	}
	if err := json.Unmarshal(body, &addResp); err != nil {
		return "", fmt.Errorf("decoding ipfs add response: %w", err)
	}

	zap.L().Debug("document stored", zap.String("hash", addResp.Hash))
	return IpfsPrefix + addResp.Hash, nil
}

// NewIPFSClient constructs a Kubo HTTP API client pointed at addr. The short
// HTTP timeout suits document-sized payloads.
func NewIPFSClient(addr string) (*rpc.HttpApi, error) {
	httpClient := http.Client{
		Timeout: 5 * time.Second,
	}
	return rpc.NewURLApiWithClient(addr, &httpClient)
}
