// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"github.com/oklog/ulid/v2"
)

// An RPCCall is the immutable per-invocation descriptor built by a
// generated stub and consumed by exactly one dispatcher call. The req-id
// is generated at construction and never changes.
type RPCCall struct {
	RPCName       string
	ReqID         string
	Path          string
	Method        HTTPMethod
	ClientVersion string
	ContentType   ContentType
	// Headers is the client's shared header map; the dispatcher takes a
	// snapshot of it when the call is sent.
	Headers *SharedHeaderMap
	// Data is the typed request payload, or nil for parameterless rpcs.
	Data ClientModel
}

// NewRPCCall returns a call descriptor with a freshly generated req-id.
// Req-ids are ULIDs: 128-bit, time-ordered, unique within the process.
func NewRPCCall(rpcName, path string) *RPCCall {
	return &RPCCall{
		RPCName: rpcName,
		ReqID:   ulid.Make().String(),
		Path:    path,
	}
}

// encodeBody returns the payload in the wire form implied by the call's
// content type, or nil if the call has no payload.
func (c *RPCCall) encodeBody() ([]byte, error) {
	if c.Data == nil {
		return nil, nil
	}
	switch c.ContentType {
	case ContentTypeJSON, ContentTypeUnspecified:
		return c.Data.EncodeJSON()
	}
	return nil, &EncodeError{reason: "call has unsupported content type"}
}

// encodeQuery returns the payload's query-string form, used when the
// call dispatches over GET.
func (c *RPCCall) encodeQuery() string {
	if c.Data == nil {
		return ""
	}
	return c.Data.EncodeQuery()
}

// ToMessage builds the Invocation wire message for the call, taking a
// snapshot of the shared headers.
func (c *RPCCall) ToMessage() (*InvocationMessage, error) {
	var headers HeaderMap
	if c.Headers != nil {
		headers = c.Headers.Snapshot()
	}
	body, err := c.encodeBody()
	if err != nil {
		return nil, err
	}
	return &InvocationMessage{
		ReqID:         c.ReqID,
		RPCName:       c.RPCName,
		ContentType:   c.ContentType,
		ClientVersion: c.ClientVersion,
		CustomHeaders: headers,
		Method:        c.Method,
		Path:          c.Path,
		Body:          body,
	}, nil
}
