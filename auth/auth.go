// Package auth provides bearer tokens for the Home Assistant API.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Credentials hands out access tokens from a static token or the client
// credentials flow.
type Credentials struct {
	mu  sync.Mutex
	src oauth2.TokenSource
	// refresh builds a fresh source, bypassing the cache.
	refresh func() oauth2.TokenSource
}

// NewCredentials validates conf and returns credentials for it.
func NewCredentials(ctx context.Context, conf Conf) (*Credentials, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	var refresh func() oauth2.TokenSource
	if conf.Token != "" {
		tok := &oauth2.Token{AccessToken: conf.Token, TokenType: "Bearer"}
		refresh = func() oauth2.TokenSource { return oauth2.StaticTokenSource(tok) }
	} else {
		cc := conf.toOauth2Config()
		refresh = func() oauth2.TokenSource { return cc.TokenSource(ctx) }
	}
	return &Credentials{src: refresh(), refresh: refresh}, nil
}

// Token implements oauth2.TokenSource.
func (c *Credentials) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return tok, nil
}

// GetToken retrieves a valid access token, reusing the cached one while it
// is valid.
func (c *Credentials) GetToken() (string, error) {
	tok, err := c.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// ForceRefresh discards the cached token and fetches a new one.
func (c *Credentials) ForceRefresh() (string, error) {
	c.mu.Lock()
	c.src = c.refresh()
	c.mu.Unlock()
	return c.GetToken()
}

// SetAuthHeader sets the Authorization header on r.
func (c *Credentials) SetAuthHeader(r *http.Request) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	tok.SetAuthHeader(r)
	return nil
}

// NewHTTPClient returns an HTTP client that authenticates every request.
func NewHTTPClient(ctx context.Context, c *Credentials, timeout time.Duration) *http.Client {
	cli := oauth2.NewClient(ctx, c)
	cli.Timeout = timeout
	return cli
}
