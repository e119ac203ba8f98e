package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shiori/internal/cache"
	"shiori/internal/config"
	"shiori/internal/events"
	"shiori/internal/feed"
	"shiori/internal/logging"
	"shiori/internal/notifications"
	"shiori/internal/remote"
	"shiori/internal/scrobble"
	"shiori/internal/syncer"
	"shiori/internal/watch"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *cache.Store
	client   *remote.Client
	syncer   *syncer.Syncer
	emitter  *events.Emitter
	pipeline *scrobble.Pipeline
	watcher  *watch.Watcher
	server   *feed.Server
	relay    *notifications.Relay

	storeReset bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. The list cache is
// opened here; a corrupt database is recreated empty and repopulated from
// the remote on Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, reset, err := cache.OpenOrReset(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open list cache: %w", err)
	}

	client := remote.New(cfg, logger)
	notifier := notifications.NewService(cfg)
	syn := syncer.New(cfg, store, client, notifier, logger)
	emitter := events.NewEmitter()
	pipeline := scrobble.NewPipeline(cfg, store, syn, emitter, logger)
	watcher := watch.New(cfg, pipeline, logger)
	server := feed.NewServer(cfg, pipeline, store, syn, emitter, logger)
	relay := notifications.NewRelay(cfg, notifier, emitter, logger)

	lockPath := filepath.Join(cfg.Paths.StateDir, "shiorid.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		client:     client,
		syncer:     syn,
		emitter:    emitter,
		pipeline:   pipeline,
		watcher:    watcher,
		server:     server,
		relay:      relay,
		storeReset: reset,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches every service. It returns
// once all services are running; Wait blocks until they stop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shiori daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.spawn(func() { d.pipeline.Run(runCtx) })
	d.spawn(func() { d.syncer.Run(runCtx) })
	d.spawn(func() { d.watcher.Run(runCtx) })
	d.spawn(func() { d.relay.Run(runCtx) })
	d.spawn(func() {
		if err := d.server.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("api server stopped", logging.Error(err))
		}
	})
	d.spawn(func() { d.initialRefresh(runCtx) })

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("cache", d.store.Path()),
	)
	return nil
}

func (d *Daemon) spawn(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// initialRefresh pulls the remote list once at startup so scrobbles can
// match against fresh titles. A recreated cache makes this mandatory
// rather than best-effort.
func (d *Daemon) initialRefresh(ctx context.Context) {
	err := d.syncer.Refresh(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if d.storeReset {
		d.logger.Error("initial refresh failed after cache reset, list is empty",
			logging.Error(err))
		return
	}
	d.logger.Warn("initial refresh failed, serving cached list", logging.Error(err))
}

// Wait blocks until every service goroutine has exited.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop cancels background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	// Give queued remote writes one last chance on a detached context so
	// shutdown does not strand acknowledged local progress.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 10*time.Second)
	if err := d.syncer.Flush(flushCtx); err != nil {
		d.logger.Warn("final flush incomplete, mutations remain queued", logging.Error(err))
	}
	cancelFlush()

	d.emitter.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr reports the bound loopback API address.
func (d *Daemon) APIAddr() string {
	return d.server.Addr()
}
