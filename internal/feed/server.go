// Package feed exposes the loopback HTTP API: the page-scraper push
// endpoint, scrobble cancellation, and daemon status for the CLI and the
// browser companion.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shiori/internal/cache"
	"shiori/internal/config"
	"shiori/internal/events"
	"shiori/internal/logging"
	"shiori/internal/scrobble"
	"shiori/internal/syncer"
)

// Server is the loopback HTTP surface of the daemon.
type Server struct {
	cfg      *config.Config
	pipeline *scrobble.Pipeline
	store    *cache.Store
	syncer   *syncer.Syncer
	emitter  *events.Emitter
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer wires the HTTP surface. Start must be called before Addr.
func NewServer(cfg *config.Config, pipeline *scrobble.Pipeline, store *cache.Store, syn *syncer.Syncer, emitter *events.Emitter, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		syncer:   syn,
		emitter:  emitter,
		logger:   logging.NewComponentLogger(logger, "api"),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/scrobble", s.handleScrobble)
	r.Post("/api/cancel_scrobble", s.handleCancel)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/refresh", s.handleRefresh)
	r.Post("/api/cache/clear", s.handleCacheClear)
	return r
}

// Start listens on the configured loopback address and serves until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()
	s.logger.Info("api listening", logging.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr reports the bound address once Start has begun listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.Paths.APIBind
	}
	return s.listener.Addr().String()
}

type scrobbleRequest struct {
	Title   string `json:"title"`
	Episode int    `json:"episode"`
	Manual  bool   `json:"manual"`
}

func (s *Server) handleScrobble(w http.ResponseWriter, r *http.Request) {
	var req scrobbleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Episode <= 0 {
		writeError(w, http.StatusBadRequest, "title and positive episode required")
		return
	}

	accepted := s.pipeline.Ingest(scrobble.Signal{
		Source:  scrobble.SourcePageScraper,
		Title:   req.Title,
		Episode: req.Episode,
		Manual:  req.Manual,
	})
	if !accepted {
		writeError(w, http.StatusServiceUnavailable, "signal buffer full")
		return
	}
	s.logger.Debug("scrobble accepted",
		logging.String("title", req.Title),
		logging.Int("episode", req.Episode),
		logging.Bool("manual", req.Manual),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type cancelRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	s.pipeline.Cancel(strings.TrimSpace(req.Title))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// StatusResponse is the daemon state snapshot served to the CLI.
type StatusResponse struct {
	Running      bool                  `json:"running"`
	NowWatching  *scrobble.NowWatching `json:"now_watching,omitempty"`
	TotalEntries int                   `json:"total_entries"`
	ByStatus     map[cache.Status]int  `json:"by_status"`
	PendingSync  int                   `json:"pending_sync"`
	LastSynced   *time.Time            `json:"last_synced,omitempty"`
	Recent       []events.StatusChange `json:"recent,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Running:      true,
		NowWatching:  s.pipeline.Current(),
		TotalEntries: stats.Total,
		ByStatus:     stats.ByStatus,
		PendingSync:  stats.Pending,
		LastSynced:   stats.LastSynced,
		Recent:       s.emitter.Recent(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.syncer.Refresh(ctx); err != nil {
			s.logger.Error("refresh failed", logging.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
