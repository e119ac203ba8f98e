package scrobble

import (
	"context"
	"testing"
	"time"

	"shiori/internal/cache"
	"shiori/internal/events"
	"shiori/internal/logging"
	"shiori/internal/testsupport"
)

type recordingApplier struct {
	applied []Decision
	entries []int64
}

func (r *recordingApplier) Apply(_ context.Context, entry *cache.Entry, decision Decision) error {
	r.applied = append(r.applied, decision)
	r.entries = append(r.entries, entry.RemoteID)
	return nil
}

func newTestPipeline(t *testing.T, minWatchSeconds int) (*Pipeline, *recordingApplier, *cache.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Players.MinWatchSeconds = minWatchSeconds
	store := testsupport.MustOpenStore(t, cfg)
	applier := &recordingApplier{}
	pipeline := NewPipeline(cfg, store, applier, events.NewEmitter(), logging.NewNop())
	return pipeline, applier, store
}

func TestProcessAppliesManualSignal(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 1, "Vinland Saga", 7, 24)

	pipeline.process(context.Background(), Signal{
		Source:     SourcePageScraper,
		Title:      "Vinland Saga",
		Episode:    8,
		Manual:     true,
		ObservedAt: time.Now(),
	})

	if len(applier.applied) != 1 {
		t.Fatalf("expected 1 apply, got %d", len(applier.applied))
	}
	if applier.applied[0].Progress != 8 || applier.entries[0] != 1 {
		t.Fatalf("unexpected apply: %+v for entry %d", applier.applied[0], applier.entries[0])
	}

	current := pipeline.snapshotCurrent()
	if current == nil || !current.Applied || current.Episode != 8 {
		t.Fatalf("unexpected now-watching state: %+v", current)
	}
}

func TestProcessExtractsPlayerFilename(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 2, "Sousou no Frieren", 11, 28)

	pipeline.process(context.Background(), Signal{
		Source:     SourcePlayer,
		RawText:    `/media/anime/[SubsPlease] Sousou no Frieren - 12 (1080p).mkv`,
		WatchedFor: 2 * time.Minute,
		ObservedAt: time.Now(),
	})

	if len(applier.applied) != 1 {
		t.Fatalf("expected 1 apply, got %d", len(applier.applied))
	}
	if applier.applied[0].Progress != 12 {
		t.Fatalf("unexpected progress: %+v", applier.applied[0])
	}
}

func TestProcessDwellGateDefersShortObservations(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 3, "Hyouka", 4, 22)

	start := time.Now()
	signal := Signal{
		Source:     SourcePageScraper,
		Title:      "Hyouka",
		Episode:    5,
		ObservedAt: start,
	}
	pipeline.process(context.Background(), signal)
	if len(applier.applied) != 0 {
		t.Fatalf("expected dwell deferral, got %d applies", len(applier.applied))
	}

	// Second sighting inside the window still waits.
	signal.ObservedAt = start.Add(30 * time.Second)
	pipeline.process(context.Background(), signal)
	if len(applier.applied) != 0 {
		t.Fatalf("expected continued deferral, got %d applies", len(applier.applied))
	}

	// Once the window elapses the signal passes.
	signal.ObservedAt = start.Add(61 * time.Second)
	pipeline.process(context.Background(), signal)
	if len(applier.applied) != 1 {
		t.Fatalf("expected apply after dwell, got %d", len(applier.applied))
	}
}

func TestProcessDwellResetsOnEpisodeChange(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 4, "Planetes", 3, 26)

	start := time.Now()
	pipeline.process(context.Background(), Signal{
		Source: SourcePageScraper, Title: "Planetes", Episode: 4, ObservedAt: start,
	})

	// Switching episodes restarts the continuity clock.
	pipeline.process(context.Background(), Signal{
		Source: SourcePageScraper, Title: "Planetes", Episode: 5, ObservedAt: start.Add(61 * time.Second),
	})
	if len(applier.applied) != 0 {
		t.Fatalf("expected reset dwell, got %d applies", len(applier.applied))
	}
}

func TestProcessDropsUnmatchedAndUnparseable(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 0)
	testsupport.SeedEntry(t, store, 5, "Monster", 10, 74)

	pipeline.process(context.Background(), Signal{
		Source: SourcePlayer, RawText: "no episode markers here", ObservedAt: time.Now(),
	})
	pipeline.process(context.Background(), Signal{
		Source: SourcePlayer, RawText: "Completely Unknown Show - 11", ObservedAt: time.Now(),
	})
	if len(applier.applied) != 0 {
		t.Fatalf("expected silent drops, got %d applies", len(applier.applied))
	}
}

func TestCancelClearsPendingDwell(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 6, "Mushishi", 1, 26)

	start := time.Now()
	signal := Signal{Source: SourcePageScraper, Title: "Mushishi", Episode: 2, ObservedAt: start}
	pipeline.process(context.Background(), signal)
	pipeline.applyCancel("Mushishi")

	// The dwell clock restarted, so an in-window follow-up stays deferred.
	signal.ObservedAt = start.Add(61 * time.Second)
	pipeline.process(context.Background(), signal)
	if len(applier.applied) != 0 {
		t.Fatalf("expected cancelled dwell, got %d applies", len(applier.applied))
	}
	if pipeline.snapshotCurrent() != nil && pipeline.snapshotCurrent().Applied {
		t.Fatal("expected no applied state after cancel")
	}
}

func TestCancelLeavesOtherDwellTracking(t *testing.T) {
	pipeline, applier, store := newTestPipeline(t, 60)
	testsupport.SeedEntry(t, store, 7, "Mushishi", 1, 26)
	testsupport.SeedEntry(t, store, 8, "Planetes", 3, 26)

	start := time.Now()
	pipeline.process(context.Background(), Signal{
		Source: SourcePageScraper, Title: "Mushishi", Episode: 2, ObservedAt: start,
	})
	pipeline.process(context.Background(), Signal{
		Source: SourcePlayer, Title: "Planetes", Episode: 4, ObservedAt: start,
	})
	pipeline.applyCancel("Mushishi")

	// The player's dwell clock keeps running and its episode still applies.
	pipeline.process(context.Background(), Signal{
		Source: SourcePlayer, Title: "Planetes", Episode: 4, ObservedAt: start.Add(61 * time.Second),
	})
	if len(applier.applied) != 1 || applier.entries[0] != 8 {
		t.Fatalf("expected Planetes apply to survive cancel, got %v", applier.entries)
	}

	// The cancelled title restarted its clock.
	pipeline.process(context.Background(), Signal{
		Source: SourcePageScraper, Title: "Mushishi", Episode: 2, ObservedAt: start.Add(61 * time.Second),
	})
	if len(applier.applied) != 1 {
		t.Fatalf("expected cancelled dwell to restart, got %d applies", len(applier.applied))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}
