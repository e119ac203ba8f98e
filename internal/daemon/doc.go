// Package daemon assembles the long-running services: the local list cache,
// the remote client and syncer, the scrobble pipeline, the player watcher,
// the loopback API, and the notification relay. It enforces single-instance
// execution with a file lock.
package daemon
