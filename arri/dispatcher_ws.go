// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"context"

	"github.com/gorilla/websocket"
)

// TransportWebsocket is the reserved transport id for the Websocket
// dispatcher.
const TransportWebsocket = "ws"

// A WebsocketDispatcher is the reserved Websocket transport slot. Its
// id participates in transport resolution so that generated clients can
// be configured for it ahead of time, but the wire framing over
// Websocket is not yet defined and its operations fail with a typed
// error.
type WebsocketDispatcher struct {
	dialer *websocket.Dialer
	url    string
}

var _ TransportDispatcher = (*WebsocketDispatcher)(nil)

// NewWebsocketDispatcher returns the reserved Websocket dispatcher for
// url, dialing with dialer or websocket.DefaultDialer if nil.
func NewWebsocketDispatcher(dialer *websocket.Dialer, url string) *WebsocketDispatcher {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebsocketDispatcher{dialer: dialer, url: url}
}

// TransportID implements the [TransportDispatcher] interface.
func (d *WebsocketDispatcher) TransportID() string { return TransportWebsocket }

func errWebsocketUnimplemented() *ArriError {
	return NewArriError(0, "websocket transport is not implemented")
}

// DispatchRPC implements the [TransportDispatcher] interface. It always
// fails: the Websocket transport is a reserved slot.
func (d *WebsocketDispatcher) DispatchRPC(ctx context.Context, call *RPCCall) (*RawResponse, error) {
	return nil, errWebsocketUnimplemented()
}

// DispatchOutputStreamRPC implements the [TransportDispatcher]
// interface. It delivers a single terminal error event: the Websocket
// transport is a reserved slot.
func (d *WebsocketDispatcher) DispatchOutputStreamRPC(ctx context.Context, call *RPCCall, onEvent OnStreamEvent, opts *StreamOptions) {
	controller := NewEventStreamController()
	if opts != nil && opts.Controller != nil {
		controller = opts.Controller
	}
	onEvent(StreamEvent{Type: StreamError, Err: errWebsocketUnimplemented()}, controller)
}
