package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/service"
)

// CacheHandler exposes administrative cache operations over HTTP. Every
// route here is expected to sit behind middleware.AdminAuth.
type CacheHandler struct {
	svc    *service.Service
	logger zerolog.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(svc *service.Service, logger zerolog.Logger) *CacheHandler {
	return &CacheHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "cache").Logger(),
	}
}

// Stats handles GET /v1/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetCacheStats())
}

// List handles GET /v1/cache/heuristics?limit=N.
func (h *CacheHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"heuristics": h.svc.ListCachedHeuristics(limit),
	})
}

// FlushAll handles DELETE /v1/cache.
func (h *CacheHandler) FlushAll(w http.ResponseWriter, r *http.Request) {
	count := h.svc.FlushCache()
	h.logger.Info().Int("evicted", count).Msg("full cache flush")
	writeJSON(w, http.StatusOK, map[string]interface{}{"flushed": true, "evicted": count})
}

// Evict handles DELETE /v1/cache/heuristics/{id}.
func (h *CacheHandler) Evict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid heuristic id")
		return
	}
	if !h.svc.EvictFromCache(id) {
		writeError(w, http.StatusNotFound, "heuristic not cached")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"evicted": true, "heuristic_id": id})
}

// Notify handles POST /v1/cache/heuristics/{id}/notify — a storage-side
// write path tells the gateway a heuristic changed, so it evicts any
// cached copy and fans the change out to sibling replicas.
func (h *CacheHandler) Notify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid heuristic id")
		return
	}

	var body struct {
		ChangeType string `json:"change_type"`
	}
	_ = decodeJSON(r, &body)

	h.svc.NotifyHeuristicChange(r.Context(), id, body.ChangeType)
	writeJSON(w, http.StatusOK, map[string]interface{}{"notified": true, "heuristic_id": id})
}
