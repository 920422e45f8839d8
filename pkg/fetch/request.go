package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/datariver/provider-go/pkg/model"
)

// Chunk sizes for the two streaming paths. Checksum reads can afford larger
// chunks since nothing is forwarded; response streaming uses the historical
// smaller size.
const (
	checksumChunkSize = 8192
	streamChunkSize   = 4096
)

var (
	// ErrUnsafeURL marks a download URL that failed safety validation or
	// exceeded the redirect bound.
	ErrUnsafeURL = errors.New("unsafe url")
	// ErrUnsafeMethod marks a descriptor method outside GET/POST at the
	// response-building boundary.
	ErrUnsafeMethod = errors.New("unsafe method")
	// ErrUpstreamStatus marks a non-2xx origin answer where a body read was
	// required (checksum mode).
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

// newOriginRequest builds an outbound request for a file descriptor. Userdata
// travels as query parameters for everything except POST, where it becomes a
// JSON body. Descriptor headers are applied last so they win over extra.
func newOriginRequest(ctx context.Context, method, rawURL string, fo *model.FileObject, extra http.Header) (*http.Request, error) {
	var body io.Reader
	asJSON := method == http.MethodPost && !fo.Userdata.IsZero()
	if asJSON {
		payload, err := fo.Userdata.Body()
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	if asJSON {
		req.Header.Set("Content-Type", "application/json")
	} else if params := fo.Userdata.Params(); params != nil {
		q := req.URL.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	for k, v := range fo.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
