package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"shiori/internal/config"
	"shiori/internal/logging"
)

// Store manages list persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "list.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// OpenOrReset opens the cache database, discarding and recreating it when the
// existing file cannot be read. A discarded cache starts empty; callers should
// schedule a full refresh afterwards.
func OpenOrReset(cfg *config.Config, logger *slog.Logger) (*Store, bool, error) {
	store, err := Open(cfg)
	if err == nil {
		return store, false, nil
	}
	if logger != nil {
		logger.Warn("cache database unreadable, recreating", logging.Error(err))
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "list.db")
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}

	store, err = Open(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("recreate cache db: %w", err)
	}
	return store, true, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}
