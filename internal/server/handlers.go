package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
)

// APIHandler serves health, status, playlist listing and on-demand sync.
type APIHandler struct {
	engine    tasks.SyncEngine
	scheduler StatusProvider
	prober    services.Prober
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewAPIHandler creates the API handler. scheduler and prober may be nil.
func NewAPIHandler(engine tasks.SyncEngine, scheduler StatusProvider, prober services.Prober, logger *log.Logger) *APIHandler {
	h := &APIHandler{
		engine:    engine,
		scheduler: scheduler,
		prober:    prober,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /status", h.status)
	h.mux.HandleFunc("GET /playlists", h.playlists)
	h.mux.HandleFunc("POST /sync", h.sync)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"GET /health", "GET /status", "GET /playlists", "POST /sync"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string           `json:"status"`
	Downloader DownloaderHealth `json:"downloader"`
}

type DownloaderHealth struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.prober != nil {
		if version, err := h.prober.Version(r.Context()); err == nil {
			resp.Downloader = DownloaderHealth{Available: true, Version: version}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Running    bool                  `json:"running"`
	Interval   string                `json:"interval"`
	LastRunAt  *time.Time            `json:"last_run_at,omitempty"`
	LastRunID  string                `json:"last_run_id,omitempty"`
	LastResult *models.SyncAllResult `json:"last_result,omitempty"`
	Info       []string              `json:"info"`
}

func (h *APIHandler) status(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	st := h.scheduler.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Running:    st.Running,
		Interval:   st.Interval.String(),
		LastRunAt:  st.LastRunAt,
		LastRunID:  st.LastRunID,
		LastResult: st.LastResult,
		Info:       h.scheduler.StatusInfo(),
	})
}

// PlaylistResponse is one entry of GET /playlists.
type PlaylistResponse struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	URL          string               `json:"url"`
	VideoCount   int                  `json:"video_count"`
	LastSyncedAt *time.Time           `json:"last_synced_at,omitempty"`
	Stats        models.PlaylistStats `json:"stats"`
}

func (h *APIHandler) playlists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.engine.ListPlaylists()
	if err != nil {
		h.logger.Error("failed to list playlists", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]PlaylistResponse, 0, len(playlists))
	for _, p := range playlists {
		stats, err := h.engine.PlaylistStats(p.ID())
		if err != nil {
			h.logger.Error("failed to count videos", "playlist", p.ID(), "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp = append(resp, PlaylistResponse{
			ID:           p.ID(),
			Title:        p.DisplayTitle(),
			URL:          p.URL(),
			VideoCount:   p.VideoCount(),
			LastSyncedAt: p.LastSyncedAt(),
			Stats:        stats,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// RestrictedResponse is the 403 body of POST /sync.
type RestrictedResponse struct {
	Error          string `json:"error"`
	PlaylistURL    string `json:"playlist_url"`
	ItemCountHint  int    `json:"item_count_hint"`
	AuthConfigured bool   `json:"auth_configured"`
	Liked          bool   `json:"liked"`
}

// sync runs synchronously: one playlist with ?id=, otherwise all of them.
//
// The run is detached from the request's cancellation so a client disconnect does not abort
// downloads halfway through.
func (h *APIHandler) sync(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		res, err := h.engine.SyncAllPlaylists(ctx, nil)
		if err != nil {
			h.logger.Error("sync run failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := h.engine.SyncPlaylist(ctx, id, nil)
	if rae, ok := shared.AsRestrictedAccess(err); ok {
		writeJSON(w, http.StatusForbidden, RestrictedResponse{
			Error:          rae.Error(),
			PlaylistURL:    rae.PlaylistURL,
			ItemCountHint:  rae.ItemCountHint,
			AuthConfigured: rae.AuthConfigured,
			Liked:          rae.Liked,
		})
		return
	}
	if err != nil {
		h.logger.Error("sync failed", "playlist", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.Message == tasks.MessageNotFound {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
