package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lostintravel/travelsync/internal/destination"
	"github.com/lostintravel/travelsync/internal/repository"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo SyncRepository
	log  *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo SyncRepository, log *slog.Logger) *Handlers {
	return &Handlers{repo: repo, log: log}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a repository error kind onto an HTTP status. Stale data
// served as a fallback never reaches this path; only unrecoverable
// failures do.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	e, ok := repository.AsError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	switch e.Kind {
	case repository.Network:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unreachable"})
	case repository.Server:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream error", "upstream_status": e.Code})
	case repository.NotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "destination not found"})
	case repository.NoCachedData:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no cached data available and device is offline"})
	case repository.Storage, repository.Unknown:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// listResponse is the success envelope for list endpoints. An empty list
// is a successful, distinguishable state, not an error.
type listResponse struct {
	Destinations []destination.Destination `json:"destinations"`
	Count        int                       `json:"count"`
}

func (h *Handlers) writeList(w http.ResponseWriter, ds []destination.Destination) {
	if ds == nil {
		ds = []destination.Destination{}
	}
	writeJSON(w, http.StatusOK, listResponse{Destinations: ds, Count: len(ds)})
}

// categoryFromPath resolves the optional {category} URL parameter,
// defaulting to the unscoped catalog.
func categoryFromPath(r *http.Request) (destination.Category, bool) {
	raw := chi.URLParam(r, "category")
	if raw == "" {
		return destination.All, true
	}
	cat := destination.Category(raw)
	return cat, cat.Valid()
}

// ListDestinations handles GET /api/v1/destinations.
func (h *Handlers) ListDestinations(w http.ResponseWriter, r *http.Request) {
	ds, err := h.repo.GetDestinations(r.Context())
	if err != nil {
		h.log.Error("list destinations failed", "err", err)
		h.writeError(w, err)
		return
	}
	h.writeList(w, ds)
}

// ListCategory handles GET /api/v1/destinations/{category} for the
// flagged categories.
func (h *Handlers) ListCategory(cat destination.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := h.repo.GetCategory(r.Context(), cat)
		if err != nil {
			h.log.Error("list category failed", "category", cat, "err", err)
			h.writeError(w, err)
			return
		}
		h.writeList(w, ds)
	}
}

// SearchDestinations handles GET /api/v1/destinations/search?query=.
func (h *Handlers) SearchDestinations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter is required"})
		return
	}

	ds, err := h.repo.Search(r.Context(), query)
	if err != nil {
		h.log.Error("search failed", "query", query, "err", err)
		h.writeError(w, err)
		return
	}
	h.writeList(w, ds)
}

// GetDestination handles GET /api/v1/destinations/{id}.
func (h *Handlers) GetDestination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error("get destination failed", "id", id, "err", err)
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ToggleFavorite handles POST /api/v1/destinations/{id}/favorite.
func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fav, err := h.repo.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.log.Error("toggle favorite failed", "id", id, "err", err)
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_favorite": fav})
}

// ListFavorites handles GET /api/v1/favorites by taking the first
// snapshot off the favorites stream.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, err := h.repo.Favorites(ctx)
	if err != nil {
		h.log.Error("favorites stream failed", "err", err)
		h.writeError(w, err)
		return
	}

	select {
	case favs := <-ch:
		h.writeList(w, favs)
	case <-r.Context().Done():
	}
}

// RefreshCategory handles POST /api/v1/refresh/{category}.
func (h *Handlers) RefreshCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := categoryFromPath(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown category"})
		return
	}

	if err := h.repo.Refresh(r.Context(), cat); err != nil {
		h.log.Error("refresh failed", "category", cat, "err", err)
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed", "category": string(cat)})
}

// ClearCache handles DELETE /api/v1/cache.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.ClearCache(r.Context()); err != nil {
		h.log.Error("clear cache failed", "err", err)
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// HealthCheck pings the backing stores; 200 when both answer, 503
// otherwise.
type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis
// connectivity.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
