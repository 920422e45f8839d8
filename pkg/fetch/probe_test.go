package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/datariver/provider-go/pkg/model"
	"github.com/datariver/provider-go/pkg/urlcheck"
)

// noRecords is a resolver fake: nothing resolves, so classification falls to
// the IP-literal check on httptest's 127.0.0.1 host.
func noRecords(domain string, qtype uint16) ([]string, error) {
	return nil, nil
}

// localChecker accepts httptest origins (loopback) by allowing non-public IPs.
func localChecker() *urlcheck.Checker {
	return urlcheck.NewChecker(urlcheck.RecordResolverFunc(noRecords), nil, true)
}

// strictChecker rejects loopback, as production config would.
func strictChecker() *urlcheck.Checker {
	return urlcheck.NewChecker(urlcheck.RecordResolverFunc(noRecords), nil, false)
}

func newProber(t *testing.T, retries int) *Prober {
	t.Helper()
	return NewProber(localChecker(), nil, "", retries, 3*time.Second)
}

func TestCheckURLDetails_LightweightProbe(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/data.csv"}
	details, ok := newProber(t, 1).CheckURLDetails(context.Background(), fo, false)
	if !ok {
		t.Fatal("expected probe to succeed")
	}
	if details.ContentType != "text/csv" {
		t.Fatalf("ContentType = %q, want text/csv", details.ContentType)
	}
	if details.ContentLength != "42" {
		t.Fatalf("ContentLength = %q, want 42", details.ContentLength)
	}
	if details.Checksum != "" {
		t.Fatalf("unexpected checksum %q without checksum mode", details.Checksum)
	}

	// The redirect validator probes with HEAD first, then the lightweight
	// HEAD must have been accepted: no GET may reach the origin.
	for _, m := range methods {
		if m == http.MethodGet {
			t.Fatalf("unexpected GET during lightweight probe, saw %v", methods)
		}
	}
}

func TestCheckURLDetails_FallsBackToHeavyweight(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead, http.MethodOptions:
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			sawGet = true
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Length", "3")
			w.Write([]byte("abc"))
		}
	}))
	defer srv.Close()

	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/blob"}
	details, ok := newProber(t, 1).CheckURLDetails(context.Background(), fo, false)
	if !ok {
		t.Fatal("expected heavyweight fallback to succeed")
	}
	if !sawGet {
		t.Fatal("expected heavyweight GET")
	}
	if details.ContentLength != "3" {
		t.Fatalf("ContentLength = %q, want 3", details.ContentLength)
	}
}

func TestCheckURLDetails_Checksum(t *testing.T) {
	payload := []byte("deterministic content for hashing")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			// Checksum mode must not take the lightweight shortcut even if
			// the probe response looks complete.
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/file.txt"}
	details, ok := newProber(t, 1).CheckURLDetails(context.Background(), fo, true)
	if !ok {
		t.Fatal("expected checksum probe to succeed")
	}

	want := sha256.Sum256(payload)
	if details.Checksum != hex.EncodeToString(want[:]) {
		t.Fatalf("checksum = %s, want %s", details.Checksum, hex.EncodeToString(want[:]))
	}
	if details.ChecksumType != "sha256" {
		t.Fatalf("checksumType = %q, want sha256", details.ChecksumType)
	}
}

func TestCheckURLDetails_ChecksumNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/file"}
	if _, ok := newProber(t, 1).CheckURLDetails(context.Background(), fo, true); ok {
		t.Fatal("expected failure for non-2xx origin in checksum mode")
	}
}

func TestCheckURLDetails_RetriesWhileNot200(t *testing.T) {
	var gets int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		gets++
		if gets == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "2")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/flaky"}
	if _, ok := newProber(t, 2).CheckURLDetails(context.Background(), fo, false); !ok {
		t.Fatal("expected retry to recover from a transient 500")
	}
	if gets != 2 {
		t.Fatalf("expected 2 heavyweight attempts, got %d", gets)
	}
}

func TestCheckURLDetails_UnsafeURLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p := NewProber(strictChecker(), nil, "", 1, 3*time.Second)
	fo := &model.FileObject{Type: model.TypeURL, URL: srv.URL + "/x"}
	if _, ok := p.CheckURLDetails(context.Background(), fo, false); ok {
		t.Fatal("loopback origin must be rejected with default policy")
	}
}

func TestCheckURLDetails_IpfsWithoutGateway(t *testing.T) {
	fo := &model.FileObject{Type: model.TypeIpfs, Hash: "Qm123"}
	if _, ok := newProber(t, 1).CheckURLDetails(context.Background(), fo, false); ok {
		t.Fatal("expected failure for ipfs descriptor without gateway")
	}
}

func TestCheckURLDetails_PostSendsUserdataBody(t *testing.T) {
	var gotBody map[string]any
	var sawOptions bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			sawOptions = true
			w.WriteHeader(http.StatusOK)
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &gotBody)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Length", "2")
			w.Write([]byte("{}"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	var fo model.FileObject
	raw := `{"type":"url","url":"` + srv.URL + `/api","method":"POST","userdata":{"key":"val"}}`
	if err := json.Unmarshal([]byte(raw), &fo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, ok := newProber(t, 1).CheckURLDetails(context.Background(), &fo, false); !ok {
		t.Fatal("expected POST probe to succeed")
	}
	if gotBody["key"] != "val" {
		t.Fatalf("origin did not receive userdata body: %#v", gotBody)
	}
	if sawOptions {
		t.Fatal("POST descriptors must skip lightweight probes")
	}
}

func TestDetailsFromHeaders_ContentRangeFallback(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "video/mp4; some=param")
	header.Set("Content-Range", "bytes 0-999/1000")

	details := detailsFromHeaders(header)
	if details.ContentType != "video/mp4" {
		t.Fatalf("ContentType = %q", details.ContentType)
	}
	if details.ContentLength != "999/1000" {
		t.Fatalf("ContentLength = %q, want tail of Content-Range", details.ContentLength)
	}
}
