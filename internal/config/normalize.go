package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	c.normalizePlayers()
	c.normalizeScrobble()
	c.normalizeRemote()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePlayers() {
	if c.Players.PollInterval <= 0 {
		c.Players.PollInterval = defaultPollInterval
	}
	if c.Players.MinWatchSeconds <= 0 {
		c.Players.MinWatchSeconds = defaultMinWatchSeconds
	}
	names := c.Players.ProcessNames[:0]
	for _, name := range c.Players.ProcessNames {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			names = append(names, trimmed)
		}
	}
	c.Players.ProcessNames = names
	if len(c.Players.ProcessNames) == 0 {
		c.Players.ProcessNames = append([]string(nil), defaultProcessNames...)
	}

	exts := c.Players.VideoExtensions[:0]
	for _, ext := range c.Players.VideoExtensions {
		trimmed := strings.ToLower(strings.TrimSpace(ext))
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		exts = append(exts, trimmed)
	}
	c.Players.VideoExtensions = exts
	if len(c.Players.VideoExtensions) == 0 {
		c.Players.VideoExtensions = append([]string(nil), defaultVideoExtensions...)
	}
}

func (c *Config) normalizeScrobble() {
	c.Scrobble.AutoComplete = strings.ToLower(strings.TrimSpace(c.Scrobble.AutoComplete))
	if c.Scrobble.AutoComplete == "" {
		c.Scrobble.AutoComplete = defaultAutoComplete
	}
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = defaultRemoteBaseURL
	}
	if c.Remote.RatePerSecond <= 0 {
		c.Remote.RatePerSecond = defaultRatePerSecond
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeout
	}
	if c.Remote.RetryAttempts <= 0 {
		c.Remote.RetryAttempts = defaultRetryAttempts
	}
	if c.Remote.RetryBackoff <= 0 {
		c.Remote.RetryBackoff = defaultRetryBackoff
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
