// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// TransportHTTP is the transport id of the HTTP dispatcher.
const TransportHTTP = "http"

// HTTPDispatcherOptions configures an HTTPDispatcher.
type HTTPDispatcherOptions struct {
	// BaseURL is the absolute URL prefix for all calls; paths are
	// appended verbatim.
	BaseURL string
	// Timeout bounds each unary request. Zero means no per-request
	// timeout. Streaming calls are not subject to it.
	Timeout time.Duration
	// Retry is the unary retry budget: the number of retries attempted
	// after the initial request. Zero disables unary retries.
	Retry uint32
	// RetryDelay is the delay between unary retries.
	RetryDelay time.Duration
	// RetryErrorCodes lists the error codes that trigger a unary retry.
	// Transport-level failures (code 0) always retry.
	RetryErrorCodes []uint32
	// RequestLimit optionally rate-limits outgoing requests, including
	// stream reconnection attempts.
	RequestLimit *rate.Limiter
}

// An HTTPDispatcher executes rpc calls over HTTP request/response and
// output streams over HTTP Server-Sent Events.
type HTTPDispatcher struct {
	client *http.Client
	opts   HTTPDispatcherOptions
}

var _ TransportDispatcher = (*HTTPDispatcher)(nil)

// NewHTTPDispatcher returns a dispatcher that sends requests with
// client, or http.DefaultClient if client is nil.
func NewHTTPDispatcher(client *http.Client, opts HTTPDispatcherOptions) *HTTPDispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDispatcher{client: client, opts: opts}
}

// TransportID implements the [TransportDispatcher] interface.
func (d *HTTPDispatcher) TransportID() string { return TransportHTTP }

const defaultRetryDelay = 250 * time.Millisecond

// DispatchRPC implements the [TransportDispatcher] interface. Non-2xx
// responses and transport failures are returned as *ArriError. When a
// retry budget is configured, transport failures and error codes listed
// in RetryErrorCodes are retried with a constant delay.
func (d *HTTPDispatcher) DispatchRPC(ctx context.Context, call *RPCCall) (*RawResponse, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}
	if d.opts.Retry == 0 {
		res, aerr := d.doRPC(ctx, call)
		if aerr != nil {
			return nil, aerr
		}
		return res, nil
	}

	delay := d.opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	res, err := backoff.Retry(ctx, func() (*RawResponse, error) {
		res, aerr := d.doRPC(ctx, call)
		if aerr == nil {
			return res, nil
		}
		if d.retryable(aerr) {
			return nil, aerr
		}
		return nil, backoff.Permanent(aerr)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(d.opts.Retry)+1),
	)
	if err != nil {
		var aerr *ArriError
		if errors.As(err, &aerr) {
			return nil, aerr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewArriError(0, "timeout")
		}
		return nil, newTransportError(err)
	}
	return res, nil
}

// retryable reports whether a failed unary attempt should be retried.
func (d *HTTPDispatcher) retryable(err *ArriError) bool {
	if err.Code == 0 {
		return true
	}
	return slices.Contains(d.opts.RetryErrorCodes, err.Code)
}

// doRPC performs a single unary request/response exchange.
func (d *HTTPDispatcher) doRPC(ctx context.Context, call *RPCCall) (*RawResponse, *ArriError) {
	if d.opts.RequestLimit != nil {
		if err := d.opts.RequestLimit.Wait(ctx); err != nil {
			return nil, d.transportError(ctx, err)
		}
	}
	req, err := d.newRequest(ctx, call)
	if err != nil {
		return nil, newTransportError(err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, d.transportError(ctx, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, d.transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ArriErrorFromResponse(resp.StatusCode, resp.Header, body)
	}
	return &RawResponse{ContentType: contentTypeFromHeader(resp.Header), Body: body}, nil
}

// transportError maps a transport-level failure to a code-0 ArriError,
// reporting deadline expiry as "timeout".
func (d *HTTPDispatcher) transportError(ctx context.Context, err error) *ArriError {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return NewArriError(0, "timeout")
	}
	return newTransportError(err)
}

// newRequest builds the HTTP request for call: base URL plus path, a
// query string for GET dispatch, the encoded payload otherwise, and the
// snapshot of shared headers plus the per-call metadata headers.
func (d *HTTPDispatcher) newRequest(ctx context.Context, call *RPCCall) (*http.Request, error) {
	method := call.Method
	if method == "" {
		method = MethodPost
	}
	url := d.opts.BaseURL + call.Path
	var body io.Reader
	if method == MethodGet {
		if q := call.encodeQuery(); q != "" {
			url += "?" + q
		}
	} else {
		b, err := call.encodeBody()
		if err != nil {
			return nil, err
		}
		if b != nil {
			body = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequestWithContext(ctx, string(method), url, body)
	if err != nil {
		return nil, err
	}
	if call.Headers != nil {
		snapshot := call.Headers.Snapshot()
		for k, v := range snapshot.All() {
			if reservedHeaders[k] {
				continue
			}
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("req-id", call.ReqID)
	req.Header.Set("rpc-name", call.RPCName)
	if call.ClientVersion != "" {
		req.Header.Set("client-version", call.ClientVersion)
	}
	if call.ContentType != ContentTypeUnspecified {
		req.Header.Set("content-type", call.ContentType.String())
	}
	return req, nil
}

func contentTypeFromHeader(header http.Header) ContentType {
	if v := header.Get("content-type"); v != "" {
		if ct, err := ParseContentType(v); err == nil {
			return ct
		}
	}
	return ContentTypeJSON
}

// DispatchOutputStreamRPC implements the [TransportDispatcher]
// interface. The driver reconnects on failure with exponential backoff
// and delivers events to onEvent in stream order from a single
// goroutine. It returns when the stream ends, the retry budget is
// exhausted, the controller is aborted, or ctx is cancelled.
func (d *HTTPDispatcher) DispatchOutputStreamRPC(ctx context.Context, call *RPCCall, onEvent OnStreamEvent, opts *StreamOptions) {
	if opts == nil {
		opts = &StreamOptions{}
	}
	controller := opts.Controller
	if controller == nil {
		controller = NewEventStreamController()
	}
	maxRetryInterval := opts.MaxRetryInterval
	if maxRetryInterval <= 0 {
		maxRetryInterval = DefaultMaxRetryInterval
	}
	es := &eventSource{
		dispatcher:       d,
		call:             call,
		onEvent:          onEvent,
		controller:       controller,
		maxRetryInterval: maxRetryInterval,
		maxRetryCount:    opts.MaxRetryCount,
	}
	es.listen(ctx)
}

// An eventSource drives one output-stream call: the reconnection loop,
// backoff, abort propagation, and SSE chunk assembly.
type eventSource struct {
	dispatcher       *HTTPDispatcher
	call             *RPCCall
	onEvent          OnStreamEvent
	controller       *EventStreamController
	retryCount       uint64
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	maxRetryCount    *uint64
}

type streamAction int

const (
	actionRetry streamAction = iota
	actionAbort
)

func (es *eventSource) emit(ev StreamEvent) {
	es.onEvent(ev, es.controller)
}

func (es *eventSource) emitError(err *ArriError) {
	es.emit(StreamEvent{Type: StreamError, Err: err})
}

// listen runs the reconnection loop. The first five retries happen
// immediately; after that the wait doubles from 2ms up to the cap.
func (es *eventSource) listen(ctx context.Context) {
	for {
		if ctx.Err() != nil || es.controller.IsAborted() {
			return
		}
		if es.maxRetryCount != nil && es.retryCount > *es.maxRetryCount {
			return
		}
		es.advanceBackoff()
		if es.retryInterval > 0 {
			timer := time.NewTimer(es.retryInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if es.controller.IsAborted() {
				return
			}
		}
		if es.attempt(ctx) == actionAbort {
			return
		}
		es.retryCount++
	}
}

// advanceBackoff updates the wait before the next attempt. The first
// five retries happen immediately; after that the wait doubles from 2ms
// up to maxRetryInterval.
func (es *eventSource) advanceBackoff() {
	if es.retryCount <= 5 {
		return
	}
	if es.retryInterval == 0 {
		es.retryInterval = 2 * time.Millisecond
	} else {
		es.retryInterval = min(es.retryInterval*2, es.maxRetryInterval)
	}
}

// attempt opens one connection and consumes it until the stream ends,
// the consumer aborts, or the connection fails.
func (es *eventSource) attempt(ctx context.Context) streamAction {
	d := es.dispatcher

	if d.opts.RequestLimit != nil {
		if err := d.opts.RequestLimit.Wait(ctx); err != nil {
			return actionRetry // loop exits at the top on cancellation
		}
	}

	// The attempt context lets the heartbeat watchdog tear down a
	// connection that has gone silent.
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := d.newRequest(attemptCtx, es.call)
	if err != nil {
		es.emitError(newTransportError(err))
		if es.controller.IsAborted() {
			return actionAbort
		}
		return actionRetry
	}
	resp, err := d.client.Do(req)
	if es.controller.IsAborted() {
		if err == nil {
			resp.Body.Close()
		}
		return actionAbort
	}
	if err != nil {
		if ctx.Err() != nil {
			return actionRetry
		}
		es.emitError(newTransportError(err))
		if es.controller.IsAborted() {
			return actionAbort
		}
		return actionRetry
	}
	defer resp.Body.Close()

	contentType := contentTypeFromHeader(resp.Header)

	// A server that advertises a heartbeat interval is promising a chunk
	// at least that often; treat 2x of silence as a dead connection.
	var watchdogFired atomic.Bool
	var watchdog *time.Timer
	var watchdogWindow time.Duration
	if ms, err := strconv.ParseUint(resp.Header.Get("heartbeat-interval"), 10, 32); err == nil && ms > 0 {
		watchdogWindow = 2 * time.Duration(ms) * time.Millisecond
		watchdog = time.AfterFunc(watchdogWindow, func() {
			watchdogFired.Store(true)
			cancel()
		})
		defer watchdog.Stop()
	}

	es.emit(StreamEvent{Type: StreamStart})
	if es.controller.IsAborted() {
		return actionAbort
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		es.emitError(ArriErrorFromResponse(resp.StatusCode, resp.Header, body))
		if es.controller.IsAborted() {
			return actionAbort
		}
		return actionRetry
	}

	es.retryCount = 0

	var pending strings.Builder
	buf := make([]byte, 8192)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if es.controller.IsAborted() {
				return actionAbort
			}
			if watchdog != nil {
				watchdog.Reset(watchdogWindow)
			}
			pending.Write(buf[:n])
			if text := pending.String(); strings.HasSuffix(text, "\n\n") || strings.HasSuffix(text, "\r\r") || strings.HasSuffix(text, "\r\n\r\n") {
				msgs, leftover := parseSSEMessages(text)
				pending.Reset()
				pending.WriteString(leftover)
				for _, msg := range msgs {
					switch msg.event {
					case "end", "done":
						es.emit(StreamEvent{Type: StreamEnd})
						return actionAbort
					case "", "message", "data":
						es.emit(StreamEvent{
							Type:     StreamData,
							Response: &RawResponse{ContentType: contentType, Body: []byte(msg.data)},
						})
						if es.controller.IsAborted() {
							return actionAbort
						}
					default:
						// Custom event names (e.g. server heartbeats) are
						// dropped.
					}
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	if es.controller.IsAborted() {
		return actionAbort
	}
	if watchdogFired.Load() {
		es.emitError(NewArriError(0, "heartbeat timeout"))
		if es.controller.IsAborted() {
			return actionAbort
		}
	}
	return actionRetry
}
