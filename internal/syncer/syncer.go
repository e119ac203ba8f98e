// Package syncer is the sole writer of list state: it applies validated
// decisions to the local cache first, then reconciles with the remote
// service asynchronously with bounded retries.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shiori/internal/cache"
	"shiori/internal/config"
	"shiori/internal/logging"
	"shiori/internal/remote"
	"shiori/internal/scrobble"
)

// RemoteAPI is the slice of the remote client the coordinator needs.
type RemoteAPI interface {
	ListEntries(ctx context.Context, kind cache.MediaKind) ([]*cache.Entry, error)
	UpdateEntry(ctx context.Context, kind cache.MediaKind, rateID int64, payload remote.UpdatePayload) (*cache.Entry, error)
}

// ErrorNotifier surfaces terminal sync failures to the user. A nil notifier
// disables the surface.
type ErrorNotifier interface {
	NotifySyncError(ctx context.Context, err error, label string) error
}

// Syncer owns all cache mutations. Local writes are optimistic; remote
// writes replay from the pending-mutations queue in submission order, so a
// stale retry can never overtake a newer value.
type Syncer struct {
	cfg      *config.Config
	store    *cache.Store
	client   RemoteAPI
	notifier ErrorNotifier
	logger   *slog.Logger

	kick chan struct{}
}

// New builds a coordinator around the cache store and remote client. The
// notifier may be nil.
func New(cfg *config.Config, store *cache.Store, client RemoteAPI, notifier ErrorNotifier, logger *slog.Logger) *Syncer {
	return &Syncer{
		cfg:      cfg,
		store:    store,
		client:   client,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "syncer"),
		kick:     make(chan struct{}, 1),
	}
}

// Apply writes an accepted decision through the cache and queues the remote
// write. The caller observes the new state immediately; the network never
// blocks the pipeline.
func (s *Syncer) Apply(ctx context.Context, entry *cache.Entry, decision scrobble.Decision) error {
	updated := *entry
	updated.Status = decision.Status
	updated.Progress = decision.Progress
	updated.RewatchCount = decision.RewatchCount
	updated.LastAutoEpisode = decision.Progress

	if err := s.store.ApplyLocal(ctx, &updated); err != nil {
		return err
	}
	stored, err := s.store.GetByRemoteID(ctx, updated.RemoteID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("entry %d missing after local apply", updated.RemoteID)
	}
	if _, err := s.store.EnqueueMutation(ctx, &cache.Mutation{
		RemoteID:     updated.RemoteID,
		Progress:     updated.Progress,
		Status:       updated.Status,
		Score:        updated.Score,
		RewatchCount: updated.RewatchCount,
		LocalVersion: stored.LocalVersion,
	}); err != nil {
		return err
	}
	s.Kick()
	return nil
}

// Kick schedules a flush round without blocking.
func (s *Syncer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run flushes pending mutations until the context is cancelled. A slow
// ticker retries mutations left over from failed rounds.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.kick:
		case <-ticker.C:
		}
		if err := s.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("flush incomplete", logging.Error(err))
		}
	}
}

// Flush replays the pending-mutations queue in order. It stops early when
// the remote stays unreachable; remaining mutations stay queued for the
// next round.
func (s *Syncer) Flush(ctx context.Context) error {
	for {
		mut, err := s.store.NextMutation(ctx)
		if err != nil {
			return err
		}
		if mut == nil {
			return nil
		}
		if err := s.flushOne(ctx, mut); err != nil {
			return err
		}
	}
}

func (s *Syncer) flushOne(ctx context.Context, mut *cache.Mutation) error {
	entry, err := s.store.GetByRemoteID(ctx, mut.RemoteID)
	if err != nil {
		return err
	}
	if entry == nil {
		// Entry vanished locally; nothing left to sync.
		return s.store.DeleteMutation(ctx, mut.ID)
	}

	superseded, err := s.hasNewerMutation(ctx, mut)
	if err != nil {
		return err
	}
	if superseded {
		// A newer mutation carries the full intended end state; sending
		// this one could overwrite fresher progress.
		return s.store.DeleteMutation(ctx, mut.ID)
	}

	status := string(mut.Status)
	payload := remote.UpdatePayload{
		Progress:  &mut.Progress,
		Status:    &status,
		Rewatches: &mut.RewatchCount,
	}

	attempts := s.cfg.Remote.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(s.cfg.Remote.RetryBackoff) * time.Second

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << (attempt - 1)):
			}
		}

		_, err := s.client.UpdateEntry(ctx, entry.MediaKind, mut.RemoteID, payload)
		if err == nil {
			return s.acknowledge(ctx, mut)
		}
		lastErr = err

		if errors.Is(err, remote.ErrNotFound) {
			// Removed remotely: invalidate the cached entry.
			s.logger.Warn("entry removed remotely, dropping from cache",
				logging.Int64(logging.FieldEntryID, mut.RemoteID))
			return s.store.Remove(ctx, mut.RemoteID)
		}
		if recordErr := s.store.RecordAttempt(ctx, mut.ID, err.Error()); recordErr != nil {
			return recordErr
		}
		if !remote.Retryable(err) {
			break
		}
	}

	// Exhausted or terminal: the entry stays flagged pending and the
	// mutation waits for the next round.
	s.logger.Warn("remote write deferred",
		logging.Int64(logging.FieldEntryID, mut.RemoteID),
		logging.Int("attempts", mut.Attempts+1),
		logging.Error(lastErr),
	)
	if s.notifier != nil && s.cfg.Notifications.Errors {
		if err := s.notifier.NotifySyncError(ctx, lastErr, "sync of "+entry.Title()); err != nil {
			s.logger.Warn("error notification failed", logging.Error(err))
		}
	}
	return lastErr
}

func (s *Syncer) acknowledge(ctx context.Context, mut *cache.Mutation) error {
	if err := s.store.DeleteMutation(ctx, mut.ID); err != nil {
		return err
	}
	remaining, err := s.store.HasPending(ctx, mut.RemoteID)
	if err != nil {
		return err
	}
	if !remaining {
		if err := s.store.MarkSynced(ctx, mut.RemoteID, time.Now()); err != nil {
			return err
		}
	}
	s.logger.Info("remote write acknowledged",
		logging.Int64(logging.FieldEntryID, mut.RemoteID),
		logging.Int("progress", mut.Progress),
		logging.String("status", string(mut.Status)),
	)
	return nil
}

func (s *Syncer) hasNewerMutation(ctx context.Context, mut *cache.Mutation) (bool, error) {
	pending, err := s.store.PendingMutations(ctx)
	if err != nil {
		return false, err
	}
	for _, other := range pending {
		if other.RemoteID == mut.RemoteID && other.ID > mut.ID {
			return true, nil
		}
	}
	return false, nil
}

// Refresh rebuilds the cache from the remote lists. Remote state wins for
// entries at rest; entries with in-flight local writes are left alone until
// their mutations flush.
func (s *Syncer) Refresh(ctx context.Context) error {
	for _, kind := range []cache.MediaKind{cache.KindAnime, cache.KindManga} {
		entries, err := s.client.ListEntries(ctx, kind)
		if err != nil {
			return err
		}
		stored, err := s.store.ReplaceAll(ctx, kind, entries)
		if err != nil {
			return err
		}
		s.logger.Info("list refreshed",
			logging.String("kind", string(kind)),
			logging.Int("remote_entries", len(entries)),
			logging.Int("stored", stored),
		)
	}
	s.Kick()
	return nil
}
