package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shiori/internal/cache"
	"shiori/internal/events"
	"shiori/internal/logging"
	"shiori/internal/remote"
	"shiori/internal/scrobble"
	"shiori/internal/syncer"
	"shiori/internal/testsupport"
)

type stubRemote struct {
	refreshed int
}

func (s *stubRemote) ListEntries(context.Context, cache.MediaKind) ([]*cache.Entry, error) {
	s.refreshed++
	return nil, nil
}

func (s *stubRemote) UpdateEntry(context.Context, cache.MediaKind, int64, remote.UpdatePayload) (*cache.Entry, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *cache.Store, *scrobble.Pipeline, func()) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	emitter := events.NewEmitter()
	sync := syncer.New(cfg, store, &stubRemote{}, nil, logger)
	pipeline := scrobble.NewPipeline(cfg, store, sync, emitter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go pipeline.Run(ctx)

	server := NewServer(cfg, pipeline, store, sync, emitter, logger)
	cleanup := func() {
		cancel()
		emitter.Close()
	}
	return server, store, pipeline, cleanup
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestScrobbleEndpointAppliesEpisode(t *testing.T) {
	server, store, _, cleanup := newTestServer(t)
	defer cleanup()

	entry := testsupport.SeedEntry(t, store, 100, "Frieren", 3, 28)

	rec := postJSON(t, server.Router(), "/api/scrobble", scrobbleRequest{
		Title:   "Frieren",
		Episode: 4,
		Manual:  true,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		updated, err := store.GetByRemoteID(context.Background(), entry.RemoteID)
		if err != nil {
			t.Fatalf("get entry: %v", err)
		}
		if updated.Progress == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progress = %d, want 4", updated.Progress)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScrobbleRejectsMalformedPayloads(t *testing.T) {
	server, _, _, cleanup := newTestServer(t)
	defer cleanup()

	router := server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/scrobble", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d, want 400", rec.Code)
	}

	cases := []scrobbleRequest{
		{Title: "", Episode: 4},
		{Title: "   ", Episode: 4},
		{Title: "Frieren", Episode: 0},
		{Title: "Frieren", Episode: -2},
	}
	for _, tc := range cases {
		rec := postJSON(t, router, "/api/scrobble", tc)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %+v status = %d, want 400", tc, rec.Code)
		}
	}
}

func TestCancelScrobble(t *testing.T) {
	server, _, _, cleanup := newTestServer(t)
	defer cleanup()

	rec := postJSON(t, server.Router(), "/api/cancel_scrobble", cancelRequest{Title: "Frieren"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusReportsCacheState(t *testing.T) {
	server, store, _, cleanup := newTestServer(t)
	defer cleanup()

	testsupport.SeedEntry(t, store, 100, "Frieren", 3, 28)
	testsupport.SeedEntry(t, store, 200, "Mushishi", 10, 26)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Running {
		t.Fatal("expected running = true")
	}
	if resp.TotalEntries != 2 {
		t.Fatalf("total entries = %d, want 2", resp.TotalEntries)
	}
	if resp.ByStatus[cache.StatusWatching] != 2 {
		t.Fatalf("watching count = %d, want 2", resp.ByStatus[cache.StatusWatching])
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	server, store, _, cleanup := newTestServer(t)
	defer cleanup()

	testsupport.SeedEntry(t, store, 100, "Frieren", 3, 28)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("total after clear = %d, want 0", stats.Total)
	}
}
