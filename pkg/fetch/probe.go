package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/files"
	"github.com/datariver/provider-go/pkg/model"
	"github.com/datariver/provider-go/pkg/urlcheck"
)

// Prober discovers metadata about remote files before they are registered or
// served: content type, content length, and optionally a SHA-256 over the
// whole body. Stateless; one instance serves all requests.
type Prober struct {
	checker *urlcheck.Checker
	client  *http.Client
	gateway string
	retries int
	timeout time.Duration
}

// NewProber wires a Prober. client follows redirects normally (the safety
// gate has already validated the chain); pass nil for a default. retries
// below 1 is treated as 1.
func NewProber(checker *urlcheck.Checker, client *http.Client, gateway string, retries int, timeout time.Duration) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if retries < 1 {
		retries = 1
	}
	return &Prober{
		checker: checker,
		client:  client,
		gateway: gateway,
		retries: retries,
		timeout: timeout,
	}
}

// probeResult carries what a single origin exchange yielded.
type probeResult struct {
	status   int
	header   http.Header
	checksum string
}

// CheckURLDetails resolves the descriptor's download URL, validates it, and
// probes the origin for content metadata. With withChecksum set, the entire
// body is read and hashed (the lightweight HEAD/OPTIONS shortcut is skipped,
// since a checksum requires real bytes).
//
// The boolean reports whether usable details were obtained; the zero
// FileDetails and false cover invalid descriptors, unsafe URLs, transport
// failures and upstream refusals alike.
func (p *Prober) CheckURLDetails(ctx context.Context, fo *model.FileObject, withChecksum bool) (model.FileDetails, bool) {
	downloadURL, err := files.ResolveDownloadURL(fo, p.gateway)
	if err != nil {
		zap.L().Error("cannot resolve download url", zap.Error(err))
		return model.FileDetails{}, false
	}

	if !p.checker.IsSafeURL(ctx, downloadURL) {
		return model.FileDetails{}, false
	}

	var result *probeResult
	for attempt := 0; attempt < p.retries; attempt++ {
		result, err = p.fetchOnce(ctx, fo, downloadURL, withChecksum)
		if err == nil && result.status == http.StatusOK {
			break
		}
	}
	if err != nil {
		zap.L().Info("file probe failed", zap.String("url", downloadURL), zap.Error(err))
		return model.FileDetails{}, false
	}
	if result.status != http.StatusOK {
		return model.FileDetails{}, false
	}

	details := detailsFromHeaders(result.header)
	if details.ContentType == "" && details.ContentLength == "" {
		return model.FileDetails{}, false
	}

	if result.checksum != "" {
		details.Checksum = result.checksum
		details.ChecksumType = "sha256"
	}
	return details, true
}

// detailsFromHeaders extracts content metadata, falling back to the tail of
// Content-Range when Content-Length is absent (some origins only send the
// former) and trimming any media-type parameters off Content-Type.
func detailsFromHeaders(header http.Header) model.FileDetails {
	contentType := header.Get("Content-Type")
	contentLength := header.Get("Content-Length")

	if contentLength == "" {
		if contentRange := header.Get("Content-Range"); contentRange != "" {
			if _, after, found := strings.Cut(contentRange, "-"); found {
				contentLength = after
			}
		}
	}

	if contentType != "" {
		contentType, _, _ = strings.Cut(contentType, ";")
	}

	return model.FileDetails{
		ContentType:   contentType,
		ContentLength: contentLength,
	}
}

// fetchOnce runs one probe round: lightweight HEAD/OPTIONS first when
// allowed, then the heavyweight declared-method request.
func (p *Prober) fetchOnce(ctx context.Context, fo *model.FileObject, downloadURL string, withChecksum bool) (*probeResult, error) {
	heavyweight := fo.HTTPMethod()

	if heavyweight != http.MethodPost {
		for _, method := range []string{http.MethodHead, http.MethodOptions} {
			result, err := p.lightweightProbe(ctx, method, downloadURL, fo)
			if err != nil {
				continue
			}
			if !withChecksum && acceptLightweight(result) {
				return result, nil
			}
		}
	}

	if !withChecksum {
		return p.headersOnly(ctx, heavyweight, downloadURL, fo)
	}
	return p.checksumFetch(ctx, heavyweight, downloadURL, fo)
}

// acceptLightweight applies the shortcut criteria: a 200 carrying a content
// identity header and a length.
func acceptLightweight(result *probeResult) bool {
	return result.status == http.StatusOK &&
		(result.header.Get("Content-Type") != "" || result.header.Get("Content-Range") != "") &&
		result.header.Get("Content-Length") != ""
}

func (p *Prober) lightweightProbe(ctx context.Context, method, downloadURL string, fo *model.FileObject) (*probeResult, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := newOriginRequest(probeCtx, method, downloadURL, fo, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	return &probeResult{status: resp.StatusCode, header: resp.Header}, nil
}

// headersOnly performs the heavyweight request but discards the body; only
// status and headers are needed when no checksum was asked for.
func (p *Prober) headersOnly(ctx context.Context, method, downloadURL string, fo *model.FileObject) (*probeResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := newOriginRequest(reqCtx, method, downloadURL, fo, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	return &probeResult{status: resp.StatusCode, header: resp.Header}, nil
}

// checksumFetch reads the entire body in fixed-size chunks, accumulating a
// SHA-256 digest. No per-request timeout applies here since the whole body
// must be read; memory stays bounded by the chunk buffer. A non-2xx status
// fails before any digest is produced.
func (p *Prober) checksumFetch(ctx context.Context, method, downloadURL string, fo *model.FileObject) (*probeResult, error) {
	req, err := newOriginRequest(ctx, method, downloadURL, fo, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d for %s", ErrUpstreamStatus, resp.StatusCode, downloadURL)
	}

	sha := sha256.New()
	if _, err := io.CopyBuffer(sha, resp.Body, make([]byte, checksumChunkSize)); err != nil {
		return nil, fmt.Errorf("reading body for checksum: %w", err)
	}

	return &probeResult{
		status:   resp.StatusCode,
		header:   resp.Header,
		checksum: hex.EncodeToString(sha.Sum(nil)),
	}, nil
}
