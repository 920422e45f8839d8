package fetch

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/files"
	"github.com/datariver/provider-go/pkg/model"
	"github.com/datariver/provider-go/pkg/urlcheck"
)

// Downloader re-streams origin content to download clients. It never buffers
// a body: bytes are copied from the origin connection to the client in
// fixed-size chunks, and a client disconnect cancels the request context,
// which aborts the origin read.
type Downloader struct {
	checker *urlcheck.Checker
	client  *http.Client
	gateway string
}

// NewDownloader wires a Downloader. headerTimeout bounds how long the origin
// may take to start answering; the body transfer itself is unbounded since
// downloads can be arbitrarily large.
func NewDownloader(checker *urlcheck.Checker, gateway string, headerTimeout time.Duration) *Downloader {
	return &Downloader{
		checker: checker,
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: headerTimeout},
		},
		gateway: gateway,
	}
}

// BuildDownloadResponse fetches the descriptor's content and writes it to w.
// Only GET and POST descriptors are served. A Range header on the incoming
// request is forwarded verbatim to the origin and mirrored on the response;
// full responses instead get attachment headers with a filename derived from
// the origin's Content-Disposition or the URL's last path segment.
//
// Preparation failures are logged and returned for the caller to translate
// into an HTTP error. Once streaming has begun, failures can only be logged.
func (d *Downloader) BuildDownloadResponse(w http.ResponseWriter, r *http.Request, fo *model.FileObject, contentType string, validateURL bool) error {
	err := d.buildDownloadResponse(w, r, fo, contentType, validateURL)
	if err != nil {
		zap.L().Error("Error preparing file download response", zap.Error(err))
	}
	return err
}

func (d *Downloader) buildDownloadResponse(w http.ResponseWriter, r *http.Request, fo *model.FileObject, contentType string, validateURL bool) error {
	method := fo.HTTPMethod()

	downloadURL, err := files.ResolveDownloadURL(fo, d.gateway)
	if err != nil {
		return err
	}

	if validateURL && !d.checker.IsSafeURL(r.Context(), downloadURL) {
		return fmt.Errorf("%w: %s", ErrUnsafeURL, downloadURL)
	}

	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("%w: %s", ErrUnsafeMethod, method)
	}

	originHeaders := http.Header{}
	rangeHeader := r.Header.Get("Range")
	isRangeRequest := rangeHeader != ""
	if isRangeRequest {
		originHeaders.Set("Range", rangeHeader)
	}

	req, err := newOriginRequest(r.Context(), method, downloadURL, fo, originHeaders)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting origin: %w", err)
	}
	defer resp.Body.Close()

	if isRangeRequest {
		w.Header().Set("Range", rangeHeader)
	} else {
		filename, derivedType := deriveFileIdentity(downloadURL, resp.Header, contentType)
		contentType = derivedType

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=%s", filename))
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Connection", "close")
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.CopyBuffer(w, resp.Body, make([]byte, streamChunkSize)); err != nil {
		// Headers are gone; a broken client or origin can only be logged.
		zap.L().Info("download stream aborted",
			zap.String("url", downloadURL),
			zap.Error(err))
		return nil
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// deriveFileIdentity picks the outbound filename and content type for a full
// (non-range) response. The origin's Content-Disposition filename wins over
// the URL's last path segment, the origin's Content-Type wins over the
// caller's, and whichever half is missing (extension or MIME type) is
// derived from the other.
func deriveFileIdentity(downloadURL string, originHeader http.Header, contentType string) (string, string) {
	filename := lastPathSegment(downloadURL)

	if cd := originHeader.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				filename = name
			}
		}
	}

	if originType := originHeader.Get("Content-Type"); originType != "" {
		contentType = originType
	}

	ext := path.Ext(filename)
	if ext != "" && contentType == "" {
		contentType = mime.TypeByExtension(ext)
	} else if ext == "" && contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
				filename += exts[0]
			}
		}
	}

	return filename, contentType
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}
