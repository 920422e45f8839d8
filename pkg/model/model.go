// Package model defines data structures for asset-supplied file descriptors
// and service metadata used by the provider: FileObject (a remote or
// IPFS-addressed file location), Service, Asset, and probe results. These
// structs mirror the JSON documents recovered from on-chain encrypted blobs,
// with validation performed once at the decode boundary.
package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// File descriptor types recognized in decrypted file lists.
const (
	TypeURL  = "url"
	TypeIpfs = "ipfs"
)

// FileObject describes one downloadable file of a service: either a direct
// URL or an IPFS hash, plus optional request shaping (method, headers,
// userdata). Instances are constructed per request from decrypted asset
// metadata, used once for validation and fetch, then discarded.
type FileObject struct {
	Type     string            `json:"type"`
	URL      string            `json:"url,omitempty"`
	Hash     string            `json:"hash,omitempty"`
	Method   string            `json:"method,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Userdata Userdata          `json:"userdata,omitempty"`
}

// HTTPMethod returns the declared request method normalized to upper case,
// defaulting to GET when absent.
func (f *FileObject) HTTPMethod() string {
	if f.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(f.Method)
}

// Validate checks the structural invariants of a file descriptor: the type
// tag must be url or ipfs and the key required by that type must be present.
// The returned error message is safe to surface to clients; serviceID is only
// used to make it traceable.
func (f *FileObject) Validate(serviceID string) error {
	if f == nil {
		return fmt.Errorf("cannot decrypt files for this service. id=%s", serviceID)
	}

	if f.Type != TypeURL && f.Type != TypeIpfs {
		return fmt.Errorf("malformed or unsupported type for service files. id=%s", serviceID)
	}

	if (f.Type == TypeIpfs && f.Hash == "") || (f.Type == TypeURL && f.URL == "") {
		return fmt.Errorf("malformed service files, missing required keys. id=%s", serviceID)
	}

	return nil
}

// DecodeFilesList decodes a decrypted payload that must be a JSON list of
// file descriptors. Headers, when present, must decode as a flat
// string-to-string mapping; anything else fails the whole list.
func DecodeFilesList(raw []byte) ([]FileObject, error) {
	var files []FileObject
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("expected a files list: %w", err)
	}
	return files, nil
}

// Service is the subset of a service record the provider needs: its
// identifier, the encrypted file list stored on-chain, and the datatoken
// address the versioned envelope must match.
type Service struct {
	ID               string `json:"id"`
	EncryptedFiles   string `json:"files"`
	DatatokenAddress string `json:"datatokenAddress"`
}

// Asset is the subset of an asset document (DDO) the provider needs. Version
// selects the decrypted-payload schema; NFTAddress participates in the
// versioned envelope check.
type Asset struct {
	ID         string    `json:"id"`
	Version    string    `json:"version"`
	NFTAddress string    `json:"nftAddress"`
	Services   []Service `json:"services,omitempty"`
}

// ServiceByID returns the service with the given ID, or the first service
// when id is empty. The second return value reports whether one was found.
func (a *Asset) ServiceByID(id string) (Service, bool) {
	if a == nil {
		return Service{}, false
	}
	for _, svc := range a.Services {
		if id == "" || svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

// FileDetails is the outcome of probing a remote file: content metadata and,
// in checksum mode, a SHA-256 digest over the full body. Derived per request,
// never stored.
type FileDetails struct {
	ContentType   string `json:"contentType"`
	ContentLength string `json:"contentLength"`
	Checksum      string `json:"checksum,omitempty"`
	ChecksumType  string `json:"checksumType,omitempty"`
}
