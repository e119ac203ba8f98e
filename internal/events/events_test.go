package events_test

import (
	"testing"
	"time"

	"shiori/internal/cache"
	"shiori/internal/events"
)

func TestEmitDeliversInOrder(t *testing.T) {
	emitter := events.NewEmitter()
	defer emitter.Close()

	ch := emitter.Subscribe()
	first := emitter.Emit(events.StatusChange{EntryID: 1, NewProgress: 1})
	second := emitter.Emit(events.StatusChange{EntryID: 1, NewProgress: 2})

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected unique ids, got %q and %q", first.ID, second.ID)
	}

	got := <-ch
	if got.NewProgress != 1 {
		t.Fatalf("expected first event, got %+v", got)
	}
	got = <-ch
	if got.NewProgress != 2 {
		t.Fatalf("expected second event, got %+v", got)
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	emitter := events.NewEmitter()
	defer emitter.Close()

	_ = emitter.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			emitter.Emit(events.StatusChange{EntryID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on slow subscriber")
	}
}

func TestRecentKeepsLatest(t *testing.T) {
	emitter := events.NewEmitter()
	defer emitter.Close()

	for i := 0; i < 40; i++ {
		emitter.Emit(events.StatusChange{EntryID: int64(i)})
	}
	recent := emitter.Recent()
	if len(recent) != 32 {
		t.Fatalf("expected 32 recent events, got %d", len(recent))
	}
	if recent[len(recent)-1].EntryID != 39 {
		t.Fatalf("expected newest event last, got %+v", recent[len(recent)-1])
	}
}

func TestCompleted(t *testing.T) {
	change := events.StatusChange{OldStatus: cache.StatusWatching, NewStatus: cache.StatusCompleted}
	if !change.Completed() {
		t.Fatal("expected completion")
	}
	change = events.StatusChange{OldStatus: cache.StatusCompleted, NewStatus: cache.StatusCompleted}
	if change.Completed() {
		t.Fatal("expected no completion for already-completed entry")
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	emitter := events.NewEmitter()
	ch := emitter.Subscribe()
	emitter.Close()
	if _, open := <-ch; open {
		t.Fatal("expected closed channel")
	}
}
