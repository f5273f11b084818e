package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	th "github.com/desertthunder/ytsync/internal/testing"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeEngine struct {
	playlists []models.Playlist
	stats     map[string]models.PlaylistStats
	syncRes   models.SyncResult
	syncErr   error
	allRes    models.SyncAllResult
	allErr    error
	listErr   error
	syncedID  string
	syncCtx   context.Context
	panics    bool
}

func (f *fakeEngine) AddPlaylist(ctx context.Context, url string) (models.Playlist, error) {
	return models.Playlist{}, shared.ErrNotImplemented
}

func (f *fakeEngine) RemovePlaylist(id string) error { return shared.ErrNotImplemented }

func (f *fakeEngine) SyncPlaylist(ctx context.Context, id string, progress chan<- tasks.ProgressUpdate) (models.SyncResult, error) {
	if f.panics {
		panic("engine exploded")
	}
	f.syncedID = id
	f.syncCtx = ctx
	return f.syncRes, f.syncErr
}

func (f *fakeEngine) SyncAllPlaylists(ctx context.Context, progress chan<- tasks.ProgressUpdate) (models.SyncAllResult, error) {
	f.syncCtx = ctx
	return f.allRes, f.allErr
}

func (f *fakeEngine) ListPlaylists() ([]models.Playlist, error) {
	return f.playlists, f.listErr
}

func (f *fakeEngine) PlaylistStats(id string) (models.PlaylistStats, error) {
	return f.stats[id], nil
}

type fakeScheduler struct {
	status tasks.SchedulerStatus
}

func (f fakeScheduler) Status() tasks.SchedulerStatus { return f.status }
func (f fakeScheduler) StatusInfo() []string          { return []string{"Scheduler: running"} }

func newTestServer(engine tasks.SyncEngine, opts Options) *Server {
	opts.Engine = engine
	opts.Logger = shared.NewLogger(io.Discard)
	return New(opts)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	t.Run("DownloaderAvailable", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{}, Options{Prober: th.NewMockDownloader()})
		rec := do(t, srv.Handler(), http.MethodGet, "/health")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decode[HealthResponse](t, rec)
		if body.Status != "ok" || !body.Downloader.Available || body.Downloader.Version != "2025.01.01" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("DownloaderMissing", func(t *testing.T) {
		prober := th.NewMockDownloader()
		prober.VersionErr = shared.ErrToolUnavailable
		srv := newTestServer(&fakeEngine{}, Options{Prober: prober})

		body := decode[HealthResponse](t, do(t, srv.Handler(), http.MethodGet, "/health"))
		if body.Status != "ok" || body.Downloader.Available {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{}, Options{})
		if rec := do(t, srv.Handler(), http.MethodPost, "/health"); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestStatus(t *testing.T) {
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	sched := fakeScheduler{status: tasks.SchedulerStatus{
		Running:   true,
		Interval:  time.Hour,
		LastRunAt: &at,
		LastRunID: "run-1",
	}}
	srv := newTestServer(&fakeEngine{}, Options{Scheduler: sched})

	rec := do(t, srv.Handler(), http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[StatusResponse](t, rec)
	if !body.Running || body.Interval != "1h0m0s" || body.LastRunID != "run-1" || !body.LastRunAt.Equal(at) {
		t.Errorf("unexpected body %+v", body)
	}
	if len(body.Info) != 1 {
		t.Errorf("expected status lines, got %v", body.Info)
	}

	t.Run("NoScheduler", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{}, Options{})
		if rec := do(t, srv.Handler(), http.MethodGet, "/status"); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestPlaylists(t *testing.T) {
	p1, _ := models.NewPlaylist("P1", "https://x/?list=P1", "First", 2)
	p2, _ := models.NewPlaylist("P2", "https://x/?list=P2", "", 0)
	engine := &fakeEngine{
		playlists: []models.Playlist{p1, p2},
		stats:     map[string]models.PlaylistStats{"P1": models.NewPlaylistStats(2, 1)},
	}
	srv := newTestServer(engine, Options{})

	body := decode[[]PlaylistResponse](t, do(t, srv.Handler(), http.MethodGet, "/playlists"))
	if len(body) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(body))
	}
	if body[0].ID != "P1" || body[0].Stats.Pending != 1 || body[0].LastSyncedAt != nil {
		t.Errorf("unexpected first playlist %+v", body[0])
	}
	if body[1].Title != "P2" {
		t.Errorf("untitled playlist should display its id, got %+v", body[1])
	}

	t.Run("StoreError", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{listErr: errors.New("offline")}, Options{})
		if rec := do(t, srv.Handler(), http.MethodGet, "/playlists"); rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestSync(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
		target string
		status int
		check  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:   "All",
			engine: &fakeEngine{allRes: models.SyncAllResult{RunID: "r", Playlists: 2, NewItems: 3}},
			target: "/sync",
			status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if body := decode[models.SyncAllResult](t, rec); body.NewItems != 3 || body.RunID != "r" {
					t.Errorf("unexpected body %+v", body)
				}
			},
		},
		{
			name:   "One",
			engine: &fakeEngine{syncRes: models.SyncResult{NewItems: 1, Downloaded: 1, Message: tasks.MessageOK}},
			target: "/sync?id=P1",
			status: http.StatusOK,
		},
		{
			name:   "NotFound",
			engine: &fakeEngine{syncRes: models.SyncResult{Message: tasks.MessageNotFound}},
			target: "/sync?id=nope",
			status: http.StatusNotFound,
		},
		{
			name: "Restricted",
			engine: &fakeEngine{syncErr: &shared.RestrictedAccessError{
				PlaylistURL:   "https://x/?list=LL",
				ItemCountHint: 7,
				Liked:         true,
			}},
			target: "/sync?id=LL",
			status: http.StatusForbidden,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				body := decode[RestrictedResponse](t, rec)
				if body.ItemCountHint != 7 || !body.Liked || body.AuthConfigured || body.Error == "" {
					t.Errorf("unexpected body %+v", body)
				}
			},
		},
		{
			name:   "Failure",
			engine: &fakeEngine{syncErr: errors.New("store offline")},
			target: "/sync?id=P1",
			status: http.StatusInternalServerError,
		},
		{
			name:   "RunFailure",
			engine: &fakeEngine{allErr: errors.New("store offline")},
			target: "/sync",
			status: http.StatusInternalServerError,
		},
		{
			name:   "Panic",
			engine: &fakeEngine{panics: true},
			target: "/sync?id=P1",
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.engine, Options{})
			rec := do(t, srv.Handler(), http.MethodPost, tt.target)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content type %q", ct)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}

	t.Run("ClientDisconnectDoesNotCancelRun", func(t *testing.T) {
		for _, target := range []string{"/sync", "/sync?id=P1"} {
			engine := &fakeEngine{}
			srv := newTestServer(engine, Options{})

			reqCtx, cancel := context.WithCancel(context.Background())
			cancel()
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil).WithContext(reqCtx))

			if engine.syncCtx == nil {
				t.Fatalf("%s: engine was not called", target)
			}
			if err := engine.syncCtx.Err(); err != nil {
				t.Errorf("%s: engine context should not be cancelled, got %v", target, err)
			}
		}
	})

	t.Run("GetNotAllowed", func(t *testing.T) {
		srv := newTestServer(&fakeEngine{}, Options{})
		if rec := do(t, srv.Handler(), http.MethodGet, "/sync"); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveFetch(tasks.FetchRestricted)
	m.ObserveFetch(tasks.FetchOK)
	m.ObserveNewItems(3)
	m.ObserveDownload(true)
	m.ObserveDownload(false)
	m.ObserveDownload(true)
	m.ObserveSync(2*time.Second, tasks.MessageOK)
	m.ObserveRun(time.Unix(1700000000, 0), 4, 1)

	if got := testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("restricted")); got != 1 {
		t.Errorf("expected 1 restricted fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.downloads.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 downloads, got %v", got)
	}
	if got := testutil.ToFloat64(m.newItems); got != 3 {
		t.Errorf("expected 3 new items, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastRun); got != 1700000000 {
		t.Errorf("unexpected last run %v", got)
	}

	srv := newTestServer(&fakeEngine{}, Options{Metrics: m})
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{
		`ytsync_fetches_total{outcome="restricted"} 1`,
		`ytsync_playlist_syncs_total{result="ok"} 1`,
		"ytsync_sync_runs_total 1",
		"ytsync_playlists 4",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("first"), mw("second"))
	r.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))

	rec := do(t, r, http.MethodGet, "/ping")
	if rec.Body.String() != "pong" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("middleware should run in the order added, got %v", order)
	}
	if got := r.Routes(); len(got) != 1 || got[0] != "GET /ping" {
		t.Errorf("unexpected routes %v", got)
	}

	t.Run("UnknownPath", func(t *testing.T) {
		order = nil
		rec := do(t, r, http.MethodGet, "/missing")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if body := decode[map[string]string](t, rec); !strings.Contains(body["error"], "/missing") {
			t.Errorf("unexpected body %v", body)
		}
		if len(order) != 2 {
			t.Errorf("middleware should wrap unmatched requests, got %v", order)
		}
	})

	t.Run("WrongMethod", func(t *testing.T) {
		rec := do(t, r, http.MethodDelete, "/ping")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET" {
			t.Errorf("expected Allow: GET, got %q", allow)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	do(t, h, http.MethodGet, "/brew")

	out := buf.String()
	if !strings.Contains(out, "path=/brew") || !strings.Contains(out, "status=418") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}

	srv := newTestServer(&fakeEngine{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
