// Package homeassistant talks to Home Assistant directly: states are read
// over REST and followed over the websocket API, and the charger is driven
// through service calls.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/pvcharge/auth"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("entity not found")

// Config defines the Home Assistant connection.
type Config struct {
	// URL is the base address, e.g. http://homeassistant.local:8123.
	URL         string    `json:"url"`
	Auth        auth.Conf `json:"auth"`
	TimeoutMS   int       `json:"timeout_ms"`
	ReconnectMS int       `json:"reconnect_ms"`
}

// Defaults for Config.SetDefaults.
const (
	DefaultTimeoutMS   = 10000
	DefaultReconnectMS = 1000
	maxReconnect       = time.Minute
)

// SetDefaults applies default timeouts.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.ReconnectMS <= 0 {
		c.ReconnectMS = DefaultReconnectMS
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("homeassistant.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("homeassistant.url %q must be an http(s) URL", c.URL)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("homeassistant.auth: %w", err)
	}
	return nil
}

// EntityState is the subset of a Home Assistant state object the controller reads.
type EntityState struct {
	EntityID    string    `json:"entity_id"`
	State       string    `json:"state"`
	LastUpdated time.Time `json:"last_updated"`
}

// Client is a minimal Home Assistant REST client.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a REST client. httpClient must add the bearer token.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{base: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// State fetches the current state of entity id.
func (c *Client) State(ctx context.Context, id string) (EntityState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/states/"+url.PathEscape(id), nil)
	if err != nil {
		return EntityState{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return EntityState{}, fmt.Errorf("get state %s: %w", id, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return EntityState{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return EntityState{}, statusError("get state "+id, resp)
	}
	var st EntityState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return EntityState{}, fmt.Errorf("decode state %s: %w", id, err)
	}
	return st, nil
}

// CallService invokes domain.service with the given data.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/services/%s/%s", c.base, url.PathEscape(domain), url.PathEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(fmt.Sprintf("call %s.%s", domain, service), resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}
