// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"net/url"

	"github.com/segmentio/encoding/json"
)

// A ClientModel is the contract between this runtime and generated
// payload types. Generated code provides concrete implementations; the
// runtime only ever moves models across the wire as bytes.
//
// The zero value of a generated model is its default form.
type ClientModel interface {
	// EncodeJSON returns the JSON wire form of the model.
	EncodeJSON() ([]byte, error)
	// DecodeJSON replaces the model's contents from JSON wire bytes.
	DecodeJSON(data []byte) error
	// EncodeQuery returns the model as a URL query string, used for GET
	// dispatch. The result does not include a leading "?".
	EncodeQuery() string
}

// A RawResponse is an undecoded rpc result: the declared content type
// and the raw body bytes, left for the generated stub to parse into its
// typed model.
type RawResponse struct {
	ContentType ContentType
	Body        []byte
}

// Decode parses the response body into out according to the response
// content type.
func (r *RawResponse) Decode(out ClientModel) error {
	switch r.ContentType {
	case ContentTypeJSON, ContentTypeUnspecified:
		return out.DecodeJSON(r.Body)
	}
	return &DecodeError{Kind: DecodeUnsupportedContentType, reason: "response has unsupported content type"}
}

// JSONModel is a ClientModel adapter for plain Go values that marshal
// with encoding/json struct tags. Generated code uses purpose-built
// implementations; JSONModel is the escape hatch for hand-written
// callers and tests.
type JSONModel[T any] struct {
	Value T
}

func (m *JSONModel[T]) EncodeJSON() ([]byte, error) {
	return json.Marshal(m.Value)
}

func (m *JSONModel[T]) DecodeJSON(data []byte) error {
	return json.Unmarshal(data, &m.Value)
}

func (m *JSONModel[T]) EncodeQuery() string {
	data, err := json.Marshal(m.Value)
	if err != nil {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	values := url.Values{}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			values.Set(k, val)
		default:
			enc, err := json.Marshal(val)
			if err != nil {
				continue
			}
			values.Set(k, string(enc))
		}
	}
	return values.Encode()
}
