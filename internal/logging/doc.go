// Package logging constructs the slog loggers used across the daemon and CLI.
//
// Two output formats are supported: a human-oriented console format
// (timestamp, level, component, message, key=value pairs) and line-delimited
// JSON for machine consumption. Components obtain scoped loggers through
// NewComponentLogger so every record carries a stable "component" attribute.
package logging
