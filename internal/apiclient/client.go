// Package apiclient talks to the HTTP API a started core listens on.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/corebridge/corebridge/internal/node"
)

const defaultTimeout = 5 * time.Second

// Client reaches a core's API on the loopback port reported by getPort.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the core API on 127.0.0.1:port.
func New(port string) (*Client, error) {
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("invalid port %q", port)
	}
	return &Client{
		BaseURL: "http://127.0.0.1:" + port,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (*node.Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("core api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("core api: %s: %s", resp.Status, body)
	}
	var h node.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("parse health: %w", err)
	}
	return &h, nil
}
