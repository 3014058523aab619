// Package telemetry ships conversation log payloads to remote storage so the
// hosted deployment keeps a copy off-box. Uploads are best-effort by
// contract: the caller treats failures the same way it treats a dropped
// conversation log line.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client posts JSON payloads to the configured collection endpoint.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport, mainly for recorded tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds an uploader. A nil or endpoint-less config yields a client
// whose Log is a no-op, so call sites never branch on configuration.
func NewClient(cfg *Config, opts ...ClientOption) *Client {
	c := &Client{cfg: cfg, httpClient: &http.Client{}}
	if cfg != nil && cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log uploads one payload as a JSON document.
func (c *Client) Log(ctx context.Context, payload any) error {
	if !c.cfg.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telemetry: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telemetry: endpoint returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
