// Package events carries status-change notifications from the scrobble
// pipeline to interested listeners such as the notification sink and the
// status endpoint.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"shiori/internal/cache"
)

// StatusChange describes one accepted transition on a list entry.
type StatusChange struct {
	ID           string
	EntryID      int64
	Title        string
	OldStatus    cache.Status
	NewStatus    cache.Status
	OldProgress  int
	NewProgress  int
	TotalUnits   int
	Score        int
	RewatchCount int
	Timestamp    time.Time
}

// Completed reports whether this change finished the entry.
func (c StatusChange) Completed() bool {
	return c.NewStatus == cache.StatusCompleted && c.OldStatus != cache.StatusCompleted
}

// Emitter fans status changes out to subscribers in emission order. Slow
// subscribers drop events rather than stall the pipeline.
type Emitter struct {
	mu          sync.Mutex
	subscribers []chan StatusChange
	recent      []StatusChange
	closed      bool
}

const (
	subscriberBuffer = 16
	recentLimit      = 32
)

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers a listener. The returned channel closes when the
// emitter shuts down.
func (e *Emitter) Subscribe() <-chan StatusChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan StatusChange, subscriberBuffer)
	if e.closed {
		close(ch)
		return ch
	}
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Emit stamps and delivers a change to every subscriber.
func (e *Emitter) Emit(change StatusChange) StatusChange {
	change.ID = uuid.NewString()
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return change
	}
	e.recent = append(e.recent, change)
	if len(e.recent) > recentLimit {
		e.recent = e.recent[len(e.recent)-recentLimit:]
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
	return change
}

// Recent returns the latest changes, newest last.
func (e *Emitter) Recent() []StatusChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]StatusChange, len(e.recent))
	copy(out, e.recent)
	return out
}

// Close shuts the emitter down and closes subscriber channels.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}
