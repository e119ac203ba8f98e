// Package notifications delivers list activity via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. The
// relay subscribes to the status-change emitter and forwards progress and
// completion events according to the configured toggles, so pipeline code
// never touches HTTP glue.
//
// Extend this package if you need alternative transports; callers depend only
// on the simple Service interface.
package notifications
