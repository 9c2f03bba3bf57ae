package agent

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type api struct {
	trigger func()
	store   store.MetadataStore
	log     log.LoggerService
}

func newRouter(trigger func(), metadata store.MetadataStore, logger log.LoggerService) http.Handler {
	a := &api{
		trigger: trigger,
		store:   metadata,
		log:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.health)
		r.Get("/sync", a.sync)
		r.Get("/sync/runs", a.runs)
	})

	return r
}

func (a *api) sync(w http.ResponseWriter, r *http.Request) {
	a.log.Info("Manual sync requested by %s", r.RemoteAddr)
	a.trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "sync started in background"})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Health(r.Context()); err != nil {
		a.log.Warn("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := a.store.ListSyncRuns(r.Context(), limit)
	if err != nil {
		a.log.Error("Failed to list sync runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list sync runs"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
