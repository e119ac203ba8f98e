// Package ctl is the HTTP control client the CLI uses to talk to a running
// daemon over the loopback API.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shiori/internal/config"
	"shiori/internal/feed"
)

// Client talks to the daemon's loopback API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a control client for the configured bind address.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: "http://" + cfg.Paths.APIBind,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping reports whether a daemon is reachable.
func (c *Client) Ping(ctx context.Context) bool {
	var out map[string]string
	return c.get(ctx, "/health", &out) == nil
}

// Status fetches the daemon state snapshot.
func (c *Client) Status(ctx context.Context) (*feed.StatusResponse, error) {
	var out feed.StatusResponse
	if err := c.get(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh asks the daemon to pull the remote list.
func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, "/api/refresh", nil, nil)
}

// ClearCache asks the daemon to drop the local list cache.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.post(ctx, "/api/cache/clear", nil, nil)
}

// Scrobble pushes a manual scrobble signal to the daemon.
func (c *Client) Scrobble(ctx context.Context, title string, episode int) error {
	payload := map[string]any{
		"title":   title,
		"episode": episode,
		"manual":  true,
	}
	return c.post(ctx, "/api/scrobble", payload, nil)
}

// CancelScrobble drops the pending scrobble for a title.
func (c *Client) CancelScrobble(ctx context.Context, title string) error {
	return c.post(ctx, "/api/cancel_scrobble", map[string]string{"title": title}, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.roundTrip(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if json.Unmarshal(data, &apiErr) == nil && strings.TrimSpace(apiErr.Error) != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
