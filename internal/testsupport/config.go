package testsupport

import (
	"path/filepath"
	"testing"

	"shiori/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Remote.AccessToken = "test-access"
	cfg.Remote.RefreshToken = "test-refresh"
	cfg.Remote.ClientID = "test-client"
	cfg.Remote.ClientSecret = "test-secret"
	cfg.Remote.UserID = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithRemoteBaseURL points the remote client at a test server.
func WithRemoteBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.BaseURL = url
	}
}

// WithIncludePlanned toggles matching against planned entries.
func WithIncludePlanned(include bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.IncludePlanned = include
	}
}

// WithAutoComplete sets the completion policy on the test config.
func WithAutoComplete(policy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scrobble.AutoComplete = policy
	}
}
