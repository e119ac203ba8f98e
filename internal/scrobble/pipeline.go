package scrobble

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"shiori/internal/cache"
	"shiori/internal/config"
	"shiori/internal/events"
	"shiori/internal/extract"
	"shiori/internal/logging"
	"shiori/internal/match"
)

// Applier receives accepted decisions. The sync coordinator implements it:
// local cache write first, remote write asynchronously.
type Applier interface {
	Apply(ctx context.Context, entry *cache.Entry, decision Decision) error
}

// NowWatching describes the signal currently being tracked, for status
// displays.
type NowWatching struct {
	Title   string
	Episode int
	Source  string
	Since   time.Time
	Applied bool
}

// Pipeline consumes signals one at a time so mutations to any given entry
// are serialized. Enqueueing never blocks the caller.
type Pipeline struct {
	cfg     *config.Config
	store   *cache.Store
	matcher *match.Matcher
	applier Applier
	emitter *events.Emitter
	logger  *slog.Logger
	policy  CompletePolicy

	signals chan Signal
	dwell   map[string]*dwellState

	current *NowWatching
	queries chan chan *NowWatching
	cancels chan string
}

type dwellState struct {
	entryID   int64
	title     string
	episode   int
	firstSeen time.Time
}

const signalBuffer = 64

// NewPipeline wires the scrobble pipeline. The applier must be non-nil.
func NewPipeline(cfg *config.Config, store *cache.Store, applier Applier, emitter *events.Emitter, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		matcher: match.New(cfg.Matching.FuzzyThreshold, cfg.Matching.Margin),
		applier: applier,
		emitter: emitter,
		logger:  logging.NewComponentLogger(logger, "scrobble"),
		policy:  PolicyFromConfig(cfg.Scrobble.AutoComplete),
		signals: make(chan Signal, signalBuffer),
		dwell:   make(map[string]*dwellState),
		queries: make(chan chan *NowWatching),
		cancels: make(chan string, 4),
	}
}

// Ingest enqueues a signal without blocking. Signals beyond the buffer are
// dropped; the next observation tick re-delivers player state anyway.
func (p *Pipeline) Ingest(signal Signal) bool {
	if signal.ObservedAt.IsZero() {
		signal.ObservedAt = time.Now().UTC()
	}
	select {
	case p.signals <- signal:
		return true
	default:
		p.logger.Warn("signal buffer full, dropping", logging.String("source", signal.Source))
		return false
	}
}

// Cancel discards pending dwell tracking. An empty title cancels everything.
func (p *Pipeline) Cancel(title string) {
	select {
	case p.cancels <- title:
	default:
	}
}

// Current returns the signal currently being tracked, nil when idle.
func (p *Pipeline) Current() *NowWatching {
	reply := make(chan *NowWatching, 1)
	select {
	case p.queries <- reply:
		return <-reply
	case <-time.After(time.Second):
		return nil
	}
}

// Run processes signals until the context is cancelled. In-flight work for
// the current signal completes before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("scrobble pipeline started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scrobble pipeline stopped")
			return ctx.Err()
		case reply := <-p.queries:
			reply <- p.snapshotCurrent()
		case title := <-p.cancels:
			p.applyCancel(title)
		case signal := <-p.signals:
			p.process(ctx, signal)
		}
	}
}

func (p *Pipeline) snapshotCurrent() *NowWatching {
	if p.current == nil {
		return nil
	}
	copied := *p.current
	return &copied
}

func (p *Pipeline) applyCancel(title string) {
	if title == "" {
		p.dwell = make(map[string]*dwellState)
		p.current = nil
		p.logger.Info("pending scrobbles cancelled")
		return
	}
	if p.current != nil && strings.EqualFold(p.current.Title, title) {
		p.current = nil
	}
	for key, state := range p.dwell {
		if strings.EqualFold(state.title, title) {
			delete(p.dwell, key)
		}
	}
	p.logger.Info("pending scrobble cancelled", logging.String("title", title))
}

func (p *Pipeline) process(ctx context.Context, signal Signal) {
	title, episode, ok := p.resolve(signal)
	if !ok {
		return
	}

	candidates, err := p.store.Candidates(ctx, cache.KindAnime, p.cfg.Matching.IncludePlanned)
	if err != nil {
		p.logger.Error("load candidates", logging.Error(err))
		return
	}
	result, ok := p.matcher.Match(title, candidates)
	if !ok {
		p.logger.Debug("no confident match", logging.String("title", title))
		return
	}
	entry := result.Entry

	p.current = &NowWatching{
		Title:   entry.Title(),
		Episode: episode,
		Source:  signal.Source,
		Since:   signal.ObservedAt,
	}

	if !p.dwellSatisfied(signal, entry, episode) {
		return
	}

	decision, reason := Decide(entry, episode, p.policy, p.cfg.Matching.IncludePlanned)
	if reason != "" {
		p.logger.Debug("signal rejected",
			logging.String("title", entry.Title()),
			logging.Int("episode", episode),
			logging.String("reason", string(reason)),
		)
		return
	}

	oldStatus := entry.Status
	oldProgress := entry.Progress
	if err := p.applier.Apply(ctx, entry, decision); err != nil {
		p.logger.Error("apply decision",
			logging.Int64(logging.FieldEntryID, entry.RemoteID),
			logging.Error(err),
		)
		return
	}
	delete(p.dwell, dwellKey(signal.Source, entry.RemoteID))
	p.current.Applied = true

	change := p.emitter.Emit(events.StatusChange{
		EntryID:      entry.RemoteID,
		Title:        entry.Title(),
		OldStatus:    oldStatus,
		NewStatus:    decision.Status,
		OldProgress:  oldProgress,
		NewProgress:  decision.Progress,
		TotalUnits:   entry.TotalUnits,
		Score:        entry.Score,
		RewatchCount: decision.RewatchCount,
	})
	p.logger.Info("progress updated",
		logging.Int64(logging.FieldEntryID, change.EntryID),
		logging.String("title", change.Title),
		logging.Int("episode", change.NewProgress),
		logging.String("status", string(change.NewStatus)),
	)
}

// resolve produces a title and episode from the signal, running extraction
// for raw player text.
func (p *Pipeline) resolve(signal Signal) (string, int, bool) {
	if signal.Parsed() {
		return signal.Title, signal.Episode, true
	}
	var (
		result extract.Result
		ok     bool
	)
	if strings.ContainsAny(signal.RawText, `/\`) {
		result, ok = extract.ParsePath(signal.RawText)
	} else {
		result, ok = extract.Parse(signal.RawText)
	}
	if !ok {
		p.logger.Debug("unparseable signal", logging.String("raw", signal.RawText))
		return "", 0, false
	}
	return result.Title, result.Episode, true
}

// dwellSatisfied enforces the minimum continuous watch duration for a
// (source, entry) pair. Manual signals bypass the gate; player signals carry
// their own observed duration; everything else is tracked across deliveries.
func (p *Pipeline) dwellSatisfied(signal Signal, entry *cache.Entry, episode int) bool {
	minWatch := p.cfg.MinWatchDuration()
	if signal.Manual || minWatch <= 0 {
		return true
	}
	if signal.WatchedFor >= minWatch {
		return true
	}

	key := dwellKey(signal.Source, entry.RemoteID)
	state := p.dwell[key]
	if state == nil || state.episode != episode {
		p.dwell[key] = &dwellState{entryID: entry.RemoteID, title: entry.Title(), episode: episode, firstSeen: signal.ObservedAt}
		return false
	}
	return signal.ObservedAt.Sub(state.firstSeen) >= minWatch
}

func dwellKey(source string, entryID int64) string {
	return source + "/" + strconv.FormatInt(entryID, 10)
}
