package model

import (
	"encoding/json"
	"testing"
)

func TestFileObjectValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    *FileObject
		wantErr bool
	}{
		{
			name: "valid url descriptor",
			file: &FileObject{Type: TypeURL, URL: "https://example.com/file"},
		},
		{
			name: "valid ipfs descriptor",
			file: &FileObject{Type: TypeIpfs, Hash: "Qm123"},
		},
		{
			name:    "nil descriptor",
			file:    nil,
			wantErr: true,
		},
		{
			name:    "unsupported type",
			file:    &FileObject{Type: "ftp", URL: "ftp://example.com"},
			wantErr: true,
		},
		{
			name:    "missing type",
			file:    &FileObject{URL: "https://example.com"},
			wantErr: true,
		},
		{
			name:    "ipfs without hash",
			file:    &FileObject{Type: TypeIpfs},
			wantErr: true,
		},
		{
			name:    "url without url",
			file:    &FileObject{Type: TypeURL},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.file.Validate("svc-1")
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFileObjectHTTPMethod(t *testing.T) {
	fo := &FileObject{Type: TypeURL, URL: "https://example.com"}
	if got := fo.HTTPMethod(); got != "GET" {
		t.Fatalf("default method = %q, want GET", got)
	}

	fo.Method = "post"
	if got := fo.HTTPMethod(); got != "POST" {
		t.Fatalf("method = %q, want POST", got)
	}
}

func TestDecodeFilesList(t *testing.T) {
	raw := []byte(`[
		{"type": "url", "url": "https://example.com/a", "method": "GET"},
		{"type": "ipfs", "hash": "Qm123", "headers": {"Authorization": "Bearer x"}}
	]`)

	files, err := DecodeFilesList(raw)
	if err != nil {
		t.Fatalf("DecodeFilesList: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].URL != "https://example.com/a" {
		t.Fatalf("unexpected url: %s", files[0].URL)
	}
	if files[1].Headers["Authorization"] != "Bearer x" {
		t.Fatalf("unexpected headers: %#v", files[1].Headers)
	}
}

func TestDecodeFilesList_RejectsNonList(t *testing.T) {
	if _, err := DecodeFilesList([]byte(`{"type": "url"}`)); err == nil {
		t.Fatal("expected error for object payload")
	}
	if _, err := DecodeFilesList([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected error for string payload")
	}
}

func TestDecodeFilesList_RejectsNestedHeaders(t *testing.T) {
	raw := []byte(`[{"type": "url", "url": "https://x", "headers": {"a": {"b": "c"}}}]`)
	if _, err := DecodeFilesList(raw); err == nil {
		t.Fatal("expected error for non-flat headers mapping")
	}
}

func TestUserdata_ObjectAndStringForms(t *testing.T) {
	var fo FileObject
	if err := json.Unmarshal([]byte(`{"type":"url","url":"https://x","userdata":{"k":"v","n":2}}`), &fo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	params := fo.Userdata.Params()
	if params.Get("k") != "v" || params.Get("n") != "2" {
		t.Fatalf("unexpected params: %v", params)
	}

	if err := json.Unmarshal([]byte(`{"type":"url","url":"https://x","userdata":"{\"k\":\"v\"}"}`), &fo); err != nil {
		t.Fatalf("unmarshal string form: %v", err)
	}
	if got := fo.Userdata.Params().Get("k"); got != "v" {
		t.Fatalf("string-form userdata not decoded, got %q", got)
	}
}

func TestUserdata_UndecodableStringDegradesToEmpty(t *testing.T) {
	var fo FileObject
	if err := json.Unmarshal([]byte(`{"type":"url","url":"https://x","userdata":"not json"}`), &fo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := fo.Userdata.Map()
	if m == nil || len(m) != 0 {
		t.Fatalf("expected empty map, got %#v", m)
	}
}

func TestUserdata_Absent(t *testing.T) {
	var fo FileObject
	if err := json.Unmarshal([]byte(`{"type":"url","url":"https://x"}`), &fo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !fo.Userdata.IsZero() {
		t.Fatal("expected zero userdata")
	}
	if fo.Userdata.Params() != nil {
		t.Fatal("expected nil params for absent userdata")
	}
	body, err := fo.Userdata.Body()
	if err != nil || body != nil {
		t.Fatalf("expected nil body, got %q err %v", body, err)
	}
}

func TestAssetServiceByID(t *testing.T) {
	asset := &Asset{Services: []Service{{ID: "a"}, {ID: "b"}}}

	if svc, ok := asset.ServiceByID("b"); !ok || svc.ID != "b" {
		t.Fatalf("ServiceByID(b) = %v, %v", svc, ok)
	}
	if svc, ok := asset.ServiceByID(""); !ok || svc.ID != "a" {
		t.Fatalf("ServiceByID(empty) = %v, %v", svc, ok)
	}
	if _, ok := asset.ServiceByID("missing"); ok {
		t.Fatal("expected not found")
	}
}
