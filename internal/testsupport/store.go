package testsupport

import (
	"context"
	"testing"

	"shiori/internal/cache"
	"shiori/internal/config"
)

// MustOpenStore opens a cache.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *cache.Store {
	t.Helper()

	store, err := cache.Open(cfg)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedEntry inserts a watching anime entry with the given title and progress.
func SeedEntry(t testing.TB, store *cache.Store, remoteID int64, title string, progress, total int) *cache.Entry {
	t.Helper()

	entry := &cache.Entry{
		RemoteID:   remoteID,
		MediaKind:  cache.KindAnime,
		Titles:     []string{title},
		Status:     cache.StatusWatching,
		Progress:   progress,
		TotalUnits: total,
	}
	if err := store.Upsert(context.Background(), entry); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	stored, err := store.GetByRemoteID(context.Background(), remoteID)
	if err != nil {
		t.Fatalf("store.GetByRemoteID: %v", err)
	}
	return stored
}
