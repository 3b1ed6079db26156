package handler

import (
	"net/http"

	"github.com/salience-gateway/gateway/storage"
)

// HealthHandler reports gateway and storage-backend liveness.
type HealthHandler struct {
	poller *storage.HealthPoller
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(poller *storage.HealthPoller) *HealthHandler {
	return &HealthHandler{poller: poller}
}

// Healthz handles GET /healthz — liveness only, never reports storage
// status, so orchestrators don't restart the gateway over a storage blip.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthzDetails handles GET /healthz/details — includes storage
// backend health as observed by the background poller.
func (h *HealthHandler) HealthzDetails(w http.ResponseWriter, r *http.Request) {
	healthy := h.poller.IsHealthy()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status":          "ok",
		"storage_healthy": healthy,
	}
	if err := h.poller.LastError(); err != nil {
		body["storage_error"] = err.Error()
	}
	writeJSON(w, status, body)
}
