package model

import (
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Userdata carries the free-form parameters a consumer attached to a file
// descriptor. On the wire it is either a JSON object or a string holding
// encoded JSON; both forms decode into the same value. A string that fails to
// decode degrades to an empty set (logged, never an error) so a bad consumer
// payload cannot block a download.
type Userdata struct {
	raw json.RawMessage
}

// UnmarshalJSON stores the raw message; interpretation is deferred to Map so
// decode of the surrounding file list never fails on userdata contents.
func (u *Userdata) UnmarshalJSON(data []byte) error {
	u.raw = append(u.raw[:0], data...)
	return nil
}

// MarshalJSON round-trips the original message.
func (u Userdata) MarshalJSON() ([]byte, error) {
	if len(u.raw) == 0 {
		return []byte("null"), nil
	}
	return u.raw, nil
}

// IsZero reports whether no userdata was supplied at all.
func (u Userdata) IsZero() bool {
	return len(u.raw) == 0 || string(u.raw) == "null"
}

// Map interprets the userdata as a key-value mapping. String-encoded JSON is
// decoded transparently; undecodable strings yield an empty map.
func (u Userdata) Map() map[string]any {
	if u.IsZero() {
		return nil
	}

	data := []byte(u.raw)
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		data = []byte(asString)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		zap.L().Info("Can not decode sent userdata for asset, sending without extra parameters.",
			zap.Error(err))
		return map[string]any{}
	}
	return m
}

// Params renders the userdata as query parameters for GET-like requests.
func (u Userdata) Params() url.Values {
	m := u.Map()
	if m == nil {
		return nil
	}
	values := url.Values{}
	for k, v := range m {
		values.Set(k, fmt.Sprint(v))
	}
	return values
}

// Body renders the userdata as a JSON body for POST requests.
func (u Userdata) Body() ([]byte, error) {
	m := u.Map()
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
