// Package watch polls running media-player processes and turns the files
// they have open into scrobble signals.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"shiori/internal/config"
	"shiori/internal/logging"
	"shiori/internal/scrobble"
)

// Sink receives observed signals; the scrobble pipeline implements it.
type Sink interface {
	Ingest(scrobble.Signal) bool
}

// Snapshot is one running process of interest.
type Snapshot struct {
	PID  int32
	Name string
	Args []string
}

// Watcher scans for configured player processes on a fixed interval. For
// each player it tracks how long the same file has stayed open and reports
// that duration with every signal, so the pipeline's dwell gate can decide
// when the episode counts as watched.
type Watcher struct {
	cfg    *config.Config
	sink   Sink
	logger *slog.Logger

	// listProcesses is swappable for tests.
	listProcesses func(ctx context.Context) ([]Snapshot, error)

	players map[int32]*playerState
}

type playerState struct {
	file      string
	firstSeen time.Time
	announced bool
	reported  bool
}

// New builds a watcher delivering signals into sink.
func New(cfg *config.Config, sink Sink, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:           cfg,
		sink:          sink,
		logger:        logging.NewComponentLogger(logger, "watch"),
		listProcesses: systemProcesses,
		players:       make(map[int32]*playerState),
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.cfg.PollDuration()
	w.logger.Info("player watcher started",
		logging.Duration("interval", interval),
		logging.Int("players", len(w.cfg.Players.ProcessNames)),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("player watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick runs one scan pass at the given observation time.
func (w *Watcher) Tick(ctx context.Context, now time.Time) {
	snapshots, err := w.listProcesses(ctx)
	if err != nil {
		w.logger.Warn("process scan failed", logging.Error(err))
		return
	}

	seen := make(map[int32]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if !w.isPlayer(snap.Name) {
			continue
		}
		file := w.videoFile(snap.Args)
		if file == "" {
			continue
		}
		seen[snap.PID] = struct{}{}
		w.observe(snap.PID, file, now)
	}

	for pid, state := range w.players {
		if _, alive := seen[pid]; !alive {
			w.logger.Debug("player closed",
				logging.Int("pid", int(pid)),
				logging.String("file", filepath.Base(state.file)),
			)
			delete(w.players, pid)
		}
	}
}

// observe tracks continuity for one player and emits at two points: when a
// file first appears, and again once it has stayed open for the minimum
// watch duration.
func (w *Watcher) observe(pid int32, file string, now time.Time) {
	state := w.players[pid]
	if state == nil || state.file != file {
		state = &playerState{file: file, firstSeen: now}
		w.players[pid] = state
	}

	elapsed := now.Sub(state.firstSeen)
	switch {
	case !state.announced:
		state.announced = true
		w.emit(file, 0, now)
	case !state.reported && elapsed >= w.cfg.MinWatchDuration():
		state.reported = true
		w.emit(file, elapsed, now)
	}
}

func (w *Watcher) emit(file string, watched time.Duration, now time.Time) {
	w.sink.Ingest(scrobble.Signal{
		Source:     scrobble.SourcePlayer,
		RawText:    file,
		WatchedFor: watched,
		ObservedAt: now,
	})
}

func (w *Watcher) isPlayer(name string) bool {
	name = strings.ToLower(name)
	for _, player := range w.cfg.Players.ProcessNames {
		if name == player || strings.TrimSuffix(name, ".exe") == strings.TrimSuffix(player, ".exe") {
			return true
		}
	}
	return false
}

// videoFile picks the first command-line argument that looks like a video
// file.
func (w *Watcher) videoFile(args []string) string {
	for _, arg := range args[min(1, len(args)):] {
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(arg))
		for _, allowed := range w.cfg.Players.VideoExtensions {
			if ext == allowed {
				return arg
			}
		}
	}
	return ""
}

func systemProcesses(ctx context.Context) ([]Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := make([]Snapshot, 0, len(procs))
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		args, err := proc.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{PID: proc.Pid, Name: name, Args: args})
	}
	return snapshots, nil
}
