// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import "sync/atomic"

// A StreamEventType discriminates the StreamEvent variants.
type StreamEventType int

const (
	// StreamStart is delivered once per connection attempt that receives
	// a response, before any data.
	StreamStart StreamEventType = iota
	// StreamData carries one decoded payload.
	StreamData
	// StreamError reports a failed attempt. Unless the consumer aborts
	// the controller, the driver retries after an error.
	StreamError
	// StreamEnd is the clean end-of-stream signal. It is terminal.
	StreamEnd
	// StreamCancelled reports consumer-side cancellation. It is terminal.
	StreamCancelled
)

// A StreamEvent is delivered to the consumer callback of an output
// stream. Response is set for StreamData events and Err for StreamError
// events; both are nil otherwise.
type StreamEvent struct {
	Type     StreamEventType
	Response *RawResponse
	Err      *ArriError
}

// An OnStreamEvent callback observes the events of one output stream.
// Events arrive in stream order from a single goroutine; the callback
// may call controller.Abort at any point to terminate the stream.
type OnStreamEvent func(event StreamEvent, controller *EventStreamController)

// An EventStreamController carries the abort signal for one streaming
// call. The driver polls it at every cooperative yield point; once
// aborted, the stream is terminal for that call.
type EventStreamController struct {
	aborted atomic.Bool
}

// NewEventStreamController returns a controller in the non-aborted
// state.
func NewEventStreamController() *EventStreamController {
	return &EventStreamController{}
}

// Abort requests termination of the stream. It is idempotent and safe
// to call from any goroutine.
func (c *EventStreamController) Abort() {
	c.aborted.Store(true)
}

// IsAborted reports whether Abort has been called.
func (c *EventStreamController) IsAborted() bool {
	return c.aborted.Load()
}
