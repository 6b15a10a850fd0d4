// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import "net/http"

// ClientConfig is the public configuration accepted by generated client
// constructors.
type ClientConfig struct {
	// HTTPClient sends all requests. If nil, http.DefaultClient is
	// used. Use [NewOAuth2Client] or its siblings to construct an
	// authorized client.
	HTTPClient *http.Client
	// BaseURL is the absolute URL prefix for all calls.
	BaseURL string
	// ClientVersion is sent as the client-version header when set.
	ClientVersion string
	// Headers are sent with every request. They can be updated later
	// through [InternalClientConfig.UpdateHeaders].
	Headers map[string]string
}

// A ClientService is implemented by every generated client.
type ClientService interface {
	// UpdateHeaders replaces the headers sent with every subsequent
	// request. In-flight calls keep the snapshot they took at dispatch.
	UpdateHeaders(headers map[string]string)
}

// An InternalClientConfig is the runtime form of a ClientConfig held by
// generated clients: the header map is shared, so one update is seen by
// every subsequent call on every service.
type InternalClientConfig struct {
	HTTPClient    *http.Client
	BaseURL       string
	ClientVersion string
	Headers       *SharedHeaderMap
}

// NewInternalClientConfig converts the public config to its runtime
// form.
func NewInternalClientConfig(cfg ClientConfig) *InternalClientConfig {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &InternalClientConfig{
		HTTPClient:    client,
		BaseURL:       cfg.BaseURL,
		ClientVersion: cfg.ClientVersion,
		Headers:       NewSharedHeaderMap(cfg.Headers),
	}
}

// UpdateHeaders replaces the shared header map contents.
func (c *InternalClientConfig) UpdateHeaders(headers map[string]string) {
	c.Headers.Replace(headers)
}

// NewCall returns a call descriptor bound to this client's shared
// headers and client version.
func (c *InternalClientConfig) NewCall(rpcName, path string) *RPCCall {
	call := NewRPCCall(rpcName, path)
	call.ClientVersion = c.ClientVersion
	call.Headers = c.Headers
	return call
}
