package syncer_test

import (
	"context"
	"testing"

	"shiori/internal/cache"
	"shiori/internal/logging"
	"shiori/internal/remote"
	"shiori/internal/scrobble"
	"shiori/internal/syncer"
	"shiori/internal/testsupport"
)

type fakeRemote struct {
	updates   []remote.UpdatePayload
	updateIDs []int64
	failures  int
	err       error
	list      []*cache.Entry
}

func (f *fakeRemote) ListEntries(_ context.Context, kind cache.MediaKind) ([]*cache.Entry, error) {
	if kind == cache.KindManga {
		return nil, nil
	}
	return f.list, nil
}

func (f *fakeRemote) UpdateEntry(_ context.Context, _ cache.MediaKind, rateID int64, payload remote.UpdatePayload) (*cache.Entry, error) {
	if f.failures > 0 {
		f.failures--
		return nil, remote.Wrap(remote.ErrTransient, "update", nil)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, payload)
	f.updateIDs = append(f.updateIDs, rateID)
	return &cache.Entry{RemoteID: rateID}, nil
}

type recordingNotifier struct {
	labels []string
	errs   []error
}

func (r *recordingNotifier) NotifySyncError(_ context.Context, err error, label string) error {
	r.labels = append(r.labels, label)
	r.errs = append(r.errs, err)
	return nil
}

func newSyncer(t *testing.T, client *fakeRemote) (*syncer.Syncer, *cache.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Remote.RetryAttempts = 2
	cfg.Remote.RetryBackoff = 0
	store := testsupport.MustOpenStore(t, cfg)
	return syncer.New(cfg, store, client, nil, logging.NewNop()), store
}

func TestApplyIsOptimistic(t *testing.T) {
	client := &fakeRemote{}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 1, "Vinland Saga", 7, 24)
	decision := scrobble.Decision{Status: cache.StatusWatching, Progress: 8}
	if err := s.Apply(ctx, entry, decision); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Cache reflects the change before any remote traffic.
	got, err := store.GetByRemoteID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if got.Progress != 8 || got.LastAutoEpisode != 8 || !got.PendingSync {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if len(client.updates) != 0 {
		t.Fatalf("expected no remote calls yet, got %d", len(client.updates))
	}
}

func TestFlushAcknowledgesMutation(t *testing.T) {
	client := &fakeRemote{}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 2, "Hyouka", 4, 22)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 5}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(client.updates) != 1 || client.updateIDs[0] != 2 {
		t.Fatalf("unexpected remote calls: %v", client.updateIDs)
	}
	if *client.updates[0].Progress != 5 || *client.updates[0].Status != "watching" {
		t.Fatalf("unexpected payload: %+v", client.updates[0])
	}

	got, err := store.GetByRemoteID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if got.PendingSync || got.LastSyncedAt == nil {
		t.Fatalf("expected synced entry, got %+v", got)
	}
	mut, err := store.NextMutation(ctx)
	if err != nil {
		t.Fatalf("NextMutation: %v", err)
	}
	if mut != nil {
		t.Fatalf("expected empty queue, got %+v", mut)
	}
}

func TestFlushRetriesAndDefers(t *testing.T) {
	// Three transient failures outlast the two configured attempts.
	client := &fakeRemote{failures: 3}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 3, "Planetes", 10, 26)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 11}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Flush(ctx); err == nil {
		t.Fatal("expected flush failure")
	}

	// Still pending, optimistic value intact.
	got, err := store.GetByRemoteID(ctx, 3)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if !got.PendingSync || got.Progress != 11 {
		t.Fatalf("unexpected entry: %+v", got)
	}
	mut, err := store.NextMutation(ctx)
	if err != nil {
		t.Fatalf("NextMutation: %v", err)
	}
	if mut == nil || mut.Attempts != 2 || mut.LastError == "" {
		t.Fatalf("unexpected mutation state: %+v", mut)
	}

	// Connectivity returns; the next round drains the queue.
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	got, err = store.GetByRemoteID(ctx, 3)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if got.PendingSync {
		t.Fatalf("expected synced entry, got %+v", got)
	}
}

func TestApplyRecordsStoredVersion(t *testing.T) {
	client := &fakeRemote{}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 7, "Versioned Show", 2, 12)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 3}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := store.GetByRemoteID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	mut, err := store.NextMutation(ctx)
	if err != nil {
		t.Fatalf("NextMutation: %v", err)
	}
	if mut == nil || mut.LocalVersion != got.LocalVersion {
		t.Fatalf("mutation version %d does not match entry version %d", mut.LocalVersion, got.LocalVersion)
	}
}

func TestFlushDeferralNotifies(t *testing.T) {
	client := &fakeRemote{failures: 3}
	notifier := &recordingNotifier{}
	cfg := testsupport.NewConfig(t)
	cfg.Remote.RetryAttempts = 2
	cfg.Remote.RetryBackoff = 0
	store := testsupport.MustOpenStore(t, cfg)
	s := syncer.New(cfg, store, client, notifier, logging.NewNop())
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 8, "Flaky Show", 1, 12)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Flush(ctx); err == nil {
		t.Fatal("expected flush failure")
	}

	if len(notifier.labels) != 1 || notifier.labels[0] != "sync of Flaky Show" {
		t.Fatalf("unexpected notifications: %v", notifier.labels)
	}
	if notifier.errs[0] == nil {
		t.Fatal("expected the terminal error in the notification")
	}
}

func TestFlushDeferralRespectsErrorsToggle(t *testing.T) {
	client := &fakeRemote{failures: 3}
	notifier := &recordingNotifier{}
	cfg := testsupport.NewConfig(t)
	cfg.Remote.RetryAttempts = 2
	cfg.Remote.RetryBackoff = 0
	cfg.Notifications.Errors = false
	store := testsupport.MustOpenStore(t, cfg)
	s := syncer.New(cfg, store, client, notifier, logging.NewNop())
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 9, "Muted Show", 1, 12)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Flush(ctx); err == nil {
		t.Fatal("expected flush failure")
	}
	if len(notifier.labels) != 0 {
		t.Fatalf("expected no notifications, got %v", notifier.labels)
	}
}

func TestFlushDropsEntryRemovedRemotely(t *testing.T) {
	client := &fakeRemote{err: remote.Wrap(remote.ErrNotFound, "update", nil)}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 4, "Gone Show", 1, 12)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := store.GetByRemoteID(ctx, 4)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected entry removed, got %+v", got)
	}
}

func TestFlushSkipsSupersededMutation(t *testing.T) {
	client := &fakeRemote{}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	entry := testsupport.SeedEntry(t, store, 5, "Monster", 10, 74)
	if err := s.Apply(ctx, entry, scrobble.Decision{Status: cache.StatusWatching, Progress: 11}); err != nil {
		t.Fatalf("Apply 11: %v", err)
	}
	refreshed, err := store.GetByRemoteID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if err := s.Apply(ctx, refreshed, scrobble.Decision{Status: cache.StatusWatching, Progress: 12}); err != nil {
		t.Fatalf("Apply 12: %v", err)
	}

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Only the newest end state went out.
	if len(client.updates) != 1 || *client.updates[0].Progress != 12 {
		t.Fatalf("unexpected remote calls: %+v", client.updates)
	}
}

func TestRefreshRemoteWinsAtRest(t *testing.T) {
	client := &fakeRemote{
		list: []*cache.Entry{
			{RemoteID: 6, MediaKind: cache.KindAnime, Titles: []string{"Drifted Show"}, Status: cache.StatusWatching, Progress: 9, TotalUnits: 12},
		},
	}
	s, store := newSyncer(t, client)
	ctx := context.Background()

	// Local copy disagrees but has no in-flight mutation.
	testsupport.SeedEntry(t, store, 6, "Drifted Show", 3, 12)

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, err := store.GetByRemoteID(ctx, 6)
	if err != nil {
		t.Fatalf("GetByRemoteID: %v", err)
	}
	if got.Progress != 9 {
		t.Fatalf("expected remote progress to win, got %+v", got)
	}
}
