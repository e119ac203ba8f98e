// Package cache persists the local replica of the user's anime and manga
// lists in SQLite and exposes helpers for reading and mutating entries.
//
// The Store manages database connections, schema migrations, entry lookups
// for the matcher, and a pending-mutations table that records local writes
// awaiting remote acknowledgement. Entries capture status, progress, score,
// rewatch counts, and the last automatically applied episode so scrobble
// decisions can be replayed safely.
//
// Treat this package as the single source of truth for list semantics; when
// you add new statuses or entry fields, add a migration under migrations/.
package cache
