package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/fetch"
	"github.com/datariver/provider-go/pkg/model"
)

const version = "1.0.0"

// gatewayCore is the slice of provider.Core the handlers need.
type gatewayCore interface {
	Address() common.Address
	CheckFile(ctx context.Context, fo *model.FileObject, withChecksum bool) (model.FileDetails, bool)
	Asset(ctx context.Context, id string) (*model.Asset, error)
	ServiceFiles(service model.Service, asset *model.Asset) []model.FileObject
	ServeDownload(w http.ResponseWriter, r *http.Request, fo *model.FileObject, contentType string) error
}

type server struct {
	core gatewayCore
}

func newRouter(core gatewayCore) *mux.Router {
	s := &server{core: core}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/api/services/filecheck", s.handleFileCheck).Methods(http.MethodPost)
	r.HandleFunc("/api/services/download", s.handleDownload).Methods(http.MethodGet, http.MethodPost)
	return r
}

// handleRoot advertises the provider identity. Peers probe this document to
// decide whether a service endpoint belongs to this provider.
func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"providerAddress": s.core.Address().Hex(),
		"version":         version,
	})
}

// fileCheckRequest is a file descriptor plus the checksum switch.
type fileCheckRequest struct {
	model.FileObject
	Checksum bool `json:"checksum"`
}

type fileCheckResponse struct {
	Valid         bool   `json:"valid"`
	ContentType   string `json:"contentType,omitempty"`
	ContentLength string `json:"contentLength,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
	ChecksumType  string `json:"checksumType,omitempty"`
}

func (s *server) handleFileCheck(w http.ResponseWriter, r *http.Request) {
	var req fileCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode request body")
		return
	}

	if err := req.FileObject.Validate(""); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details, ok := s.core.CheckFile(r.Context(), &req.FileObject, req.Checksum)
	if !ok {
		writeJSON(w, http.StatusOK, []fileCheckResponse{{Valid: false}})
		return
	}

	writeJSON(w, http.StatusOK, []fileCheckResponse{{
		Valid:         true,
		ContentType:   details.ContentType,
		ContentLength: details.ContentLength,
		Checksum:      details.Checksum,
		ChecksumType:  details.ChecksumType,
	}})
}

// downloadParams carries the download request parameters, taken from query
// arguments on GET and from the JSON body on POST.
type downloadParams struct {
	DocumentID string `json:"documentId"`
	ServiceID  string `json:"serviceId"`
	FileIndex  string `json:"fileIndex"`
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	params, err := requestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode request parameters")
		return
	}
	if params.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "documentId is required")
		return
	}

	asset, err := s.core.Asset(r.Context(), params.DocumentID)
	if err != nil {
		zap.L().Error("cannot load asset", zap.String("documentId", params.DocumentID), zap.Error(err))
		writeError(w, http.StatusBadRequest, "cannot resolve asset document")
		return
	}

	service, found := asset.ServiceByID(params.ServiceID)
	if !found {
		writeError(w, http.StatusBadRequest, "service not found in asset")
		return
	}

	list := s.core.ServiceFiles(service, asset)
	if list == nil {
		writeError(w, http.StatusBadRequest, "cannot decrypt files for this service. id="+service.ID)
		return
	}
	// An empty list is a valid decryption result and not the same as nil.
	if len(list) == 0 {
		writeError(w, http.StatusBadRequest, "no files for this service. id="+service.ID)
		return
	}

	index := 0
	if params.FileIndex != "" {
		index, err = strconv.Atoi(params.FileIndex)
		if err != nil || index < 0 || index >= len(list) {
			writeError(w, http.StatusBadRequest, "invalid fileIndex")
			return
		}
	}

	fo := list[index]
	if err := fo.Validate(service.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.core.ServeDownload(w, r, &fo, ""); err != nil {
		switch {
		case errors.Is(err, fetch.ErrUnsafeURL), errors.Is(err, fetch.ErrUnsafeMethod):
			writeError(w, http.StatusBadRequest, "unsafe file descriptor")
		default:
			writeError(w, http.StatusBadGateway, "cannot reach file origin")
		}
	}
}

// requestParams mirrors the boundary convention: query arguments win when
// present, otherwise the JSON body is consulted.
func requestParams(r *http.Request) (downloadParams, error) {
	q := r.URL.Query()
	if len(q) > 0 {
		return downloadParams{
			DocumentID: q.Get("documentId"),
			ServiceID:  q.Get("serviceId"),
			FileIndex:  q.Get("fileIndex"),
		}, nil
	}

	var params downloadParams
	if r.Body == nil {
		return params, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && err != io.EOF {
		return params, err
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("cannot encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
