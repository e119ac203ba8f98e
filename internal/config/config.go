package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// Players contains configuration for the media player process scanner.
type Players struct {
	ProcessNames    []string `toml:"process_names"`
	PollInterval    int      `toml:"poll_interval"`
	MinWatchSeconds int      `toml:"min_watch_seconds"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Matching contains thresholds for fuzzy title matching.
type Matching struct {
	// FuzzyThreshold is the minimum normalized similarity for a fuzzy match.
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
	// Margin is the minimum lead the best candidate must hold over the
	// runner-up before a fuzzy match is accepted.
	Margin float64 `toml:"margin"`
	// IncludePlanned makes planned entries eligible for automatic updates
	// so a first watched episode promotes them to watching.
	IncludePlanned bool `toml:"include_planned"`
}

// Scrobble contains progress-update policy settings.
type Scrobble struct {
	// AutoComplete controls when a final episode marks the entry completed:
	// "score" (only when the entry is already scored), "always", or "never".
	AutoComplete string `toml:"auto_complete"`
}

// Remote contains configuration for the list-tracking service API.
type Remote struct {
	BaseURL        string  `toml:"base_url"`
	AccessToken    string  `toml:"access_token"`
	RefreshToken   string  `toml:"refresh_token"`
	ClientID       string  `toml:"client_id"`
	ClientSecret   string  `toml:"client_secret"`
	UserID         int64   `toml:"user_id"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
	RetryBackoff   int     `toml:"retry_backoff_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Progress       bool   `toml:"progress"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Shiori.
//
// Sections by subsystem:
//   - Paths: state/log directories and the loopback API bind address
//   - Players: player process scanning and the minimum-dwell gate
//   - Matching: fuzzy matcher thresholds
//   - Scrobble: auto-completion policy
//   - Remote: list-tracking service connection and retry behavior
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Players       Players       `toml:"players"`
	Matching      Matching      `toml:"matching"`
	Scrobble      Scrobble      `toml:"scrobble"`
	Remote        Remote        `toml:"remote"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shiori/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("shiori.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MinWatchDuration returns the minimum-dwell gate as a duration.
func (c *Config) MinWatchDuration() time.Duration {
	seconds := c.Players.MinWatchSeconds
	if seconds <= 0 {
		seconds = defaultMinWatchSeconds
	}
	return time.Duration(seconds) * time.Second
}

// PollDuration returns the player scan interval as a duration.
func (c *Config) PollDuration() time.Duration {
	seconds := c.Players.PollInterval
	if seconds <= 0 {
		seconds = defaultPollInterval
	}
	return time.Duration(seconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
