// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI. Defaults are applied before decoding so a
// missing file still yields a usable configuration.
package config
