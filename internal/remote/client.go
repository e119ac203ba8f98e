package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"shiori/internal/config"
	"shiori/internal/logging"
)

const userAgent = "shiori/1.0"

// Client is a rate-limited Shikimori API client with automatic token
// refresh. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger

	clientID     string
	clientSecret string
	userID       int64

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// New builds a client from the remote configuration section.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	base := strings.TrimRight(cfg.Remote.BaseURL, "/")
	per := cfg.Remote.RatePerSecond
	if per <= 0 {
		per = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second},
		baseURL:    base,
		authURL:    strings.TrimSuffix(base, "/api") + "/oauth",
		limiter:    rate.NewLimiter(rate.Limit(per), 1),
		logger:     logging.NewComponentLogger(logger, "remote"),

		clientID:     cfg.Remote.ClientID,
		clientSecret: cfg.Remote.ClientSecret,
		userID:       cfg.Remote.UserID,

		accessToken:  cfg.Remote.AccessToken,
		refreshToken: cfg.Remote.RefreshToken,
	}
}

// Tokens returns the current token pair, which may differ from the
// configured one after a refresh.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// do performs one authenticated request, refreshing the access token and
// retrying once on a 401.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	resp, err := c.send(ctx, method, endpoint, params, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			return refreshErr
		}
		resp, err = c.send(ctx, method, endpoint, params, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	operation := method + " " + endpoint
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Wrap(ErrUnauthorized, operation, nil)
	case resp.StatusCode == http.StatusNotFound:
		return Wrap(ErrNotFound, operation, nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Wrap(ErrTransient, operation, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Wrap(ErrTransient, operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Wrap(ErrTransient, "rate limit wait", err)
	}

	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Wrap(ErrTransient, method+" "+endpoint, err)
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new token pair.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()
	if refreshToken == "" || c.clientID == "" || c.clientSecret == "" {
		return Wrap(ErrUnauthorized, "token refresh", fmt.Errorf("missing refresh credentials"))
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Wrap(ErrTransient, "token refresh", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Wrap(ErrUnauthorized, "token refresh", fmt.Errorf("status %d", resp.StatusCode))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Wrap(ErrTransient, "token refresh", fmt.Errorf("decode token: %w", err))
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.refreshToken = token.RefreshToken
	}
	c.mu.Unlock()
	c.logger.Info("access token refreshed")
	return nil
}
