// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewOAuth2Client returns an *http.Client that injects tokens from src
// into every request. Pass the result to [NewHTTPDispatcher] or set it
// as [ClientConfig.HTTPClient].
func NewOAuth2Client(ctx context.Context, src oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, src)
}

// NewClientCredentialsClient returns an *http.Client authorized via the
// OAuth2 client-credentials flow.
func NewClientCredentialsClient(ctx context.Context, cfg *clientcredentials.Config) *http.Client {
	return cfg.Client(ctx)
}

// NewStaticTokenClient returns an *http.Client that sends the fixed
// bearer token with every request.
func NewStaticTokenClient(ctx context.Context, token string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}
