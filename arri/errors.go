// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/segmentio/encoding/json"

	"github.com/modiimedia/arri-go/internal/statustext"
)

// An ArriError is the typed error produced by rpc dispatch: a numeric
// code, a human-readable message, and an optional response body that may
// carry structured detail.
//
// Code 0 is reserved for transport-level failures (connection refused,
// DNS, TLS, timeout); any other value is either the err-code advertised
// by the server or the raw HTTP status.
type ArriError struct {
	Code        uint32
	Message     string
	ContentType ContentType
	Body        []byte

	// cause is the underlying transport error, if any.
	cause error

	// Body parsing is lazy and performed at most once.
	parseOnce sync.Once
	data      json.RawMessage
	trace     []string
}

// NewArriError returns an error with the given code and message and no
// body. The content type defaults to JSON.
func NewArriError(code uint32, message string) *ArriError {
	return &ArriError{Code: code, Message: message, ContentType: ContentTypeJSON}
}

// newTransportError wraps a transport-level failure as a code-0 error.
func newTransportError(err error) *ArriError {
	return &ArriError{Code: 0, Message: err.Error(), ContentType: ContentTypeJSON, cause: err}
}

// ArriErrorFromResponse maps a non-2xx HTTP response onto an ArriError:
// the code comes from the err-code header (falling back to the HTTP
// status), the message from the err-msg header (falling back to the
// canonical status text), and the content type from the content-type
// header (falling back to JSON).
func ArriErrorFromResponse(status int, header http.Header, body []byte) *ArriError {
	code := uint32(status)
	if v := header.Get("err-code"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			code = uint32(n)
		}
	}
	message := header.Get("err-msg")
	if message == "" {
		message = statustext.Text(code)
	}
	contentType := ContentTypeJSON
	if v := header.Get("content-type"); v != "" {
		if ct, err := ParseContentType(v); err == nil {
			contentType = ct
		}
	}
	return &ArriError{
		Code:        code,
		Message:     message,
		ContentType: contentType,
		Body:        body,
	}
}

func (e *ArriError) Error() string {
	return fmt.Sprintf("arri: rpc error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *ArriError) Unwrap() error { return e.cause }

// parseBody attempts to interpret the body as a JSON object with "data"
// and "trace" fields. Failures leave both fields absent; the parse is
// never retried.
func (e *ArriError) parseBody() {
	e.parseOnce.Do(func() {
		if len(e.Body) == 0 || e.ContentType != ContentTypeJSON {
			return
		}
		var parsed struct {
			Data  json.RawMessage `json:"data"`
			Trace []string        `json:"trace"`
		}
		if err := json.Unmarshal(e.Body, &parsed); err != nil {
			return
		}
		e.data = parsed.Data
		e.trace = parsed.Trace
	})
}

// Data returns the "data" field of the error body, parsed lazily on
// first use. It returns nil if the body is absent, not JSON, or has no
// data field.
func (e *ArriError) Data() json.RawMessage {
	e.parseBody()
	return e.data
}

// Trace returns the "trace" field of the error body, parsed lazily on
// first use.
func (e *ArriError) Trace() []string {
	e.parseBody()
	return e.trace
}
