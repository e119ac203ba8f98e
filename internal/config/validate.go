package config

import (
	"errors"
	"fmt"
)

// Auto-complete policy names accepted in scrobble.auto_complete.
const (
	AutoCompleteScore  = "score"
	AutoCompleteAlways = "always"
	AutoCompleteNever  = "never"
)

var autoCompletePolicies = map[string]struct{}{
	AutoCompleteScore:  {},
	AutoCompleteAlways: {},
	AutoCompleteNever:  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateScrobble(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 1")
	}
	if c.Matching.Margin < 0 || c.Matching.Margin > 1 {
		return errors.New("matching.margin must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateScrobble() error {
	if _, ok := autoCompletePolicies[c.Scrobble.AutoComplete]; !ok {
		return fmt.Errorf("scrobble.auto_complete must be one of score, always, never (got %q)", c.Scrobble.AutoComplete)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
