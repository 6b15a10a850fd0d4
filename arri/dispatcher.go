// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"context"
	"slices"
	"time"
)

// DefaultMaxRetryInterval caps the exponential backoff between stream
// reconnection attempts.
const DefaultMaxRetryInterval = 30 * time.Second

// A TransportDispatcher executes rpc calls over one transport. Generated
// stubs depend only on this interface; concrete implementations exist
// for HTTP ([HTTPDispatcher]) and, as a reserved slot, Websocket
// ([WebsocketDispatcher]).
type TransportDispatcher interface {
	// TransportID returns the identifier used by transport resolution,
	// e.g. "http".
	TransportID() string

	// DispatchRPC executes a unary call and returns the undecoded
	// response for the generated stub to parse. Failures are returned as
	// *ArriError.
	DispatchRPC(ctx context.Context, call *RPCCall) (*RawResponse, error)

	// DispatchOutputStreamRPC executes a long-lived output stream,
	// delivering events to onEvent until the stream ends, the retry
	// budget is exhausted, the controller is aborted, or ctx is
	// cancelled. Failures are delivered through onEvent.
	DispatchOutputStreamRPC(ctx context.Context, call *RPCCall, onEvent OnStreamEvent, opts *StreamOptions)
}

// StreamOptions configures one output-stream dispatch.
type StreamOptions struct {
	// Controller carries the abort signal. If nil, the driver allocates
	// one internally.
	Controller *EventStreamController
	// MaxRetryCount bounds reconnection attempts. Nil means unbounded.
	MaxRetryCount *uint64
	// MaxRetryInterval caps the backoff between attempts. Zero means
	// DefaultMaxRetryInterval.
	MaxRetryInterval time.Duration
}

// ResolveTransport selects a transport id from the available set:
// the requested transport if available, else the default transport if
// available, else none.
func ResolveTransport(transports []string, defaultTransport, requested string) (string, bool) {
	if len(transports) == 0 {
		return "", false
	}
	if requested != "" && slices.Contains(transports, requested) {
		return requested, true
	}
	if defaultTransport != "" && slices.Contains(transports, defaultTransport) {
		return defaultTransport, true
	}
	return "", false
}
