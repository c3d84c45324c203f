package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stockdash/internal/infrastructure"
	"stockdash/internal/services"
)

// MetricsHandler serves the Prometheus scrape endpoint and a JSON runtime summary
type MetricsHandler struct {
	prometheus http.Handler
	system     *infrastructure.SystemMetrics
	health     *services.HealthService
}

// NewMetricsHandler creates a new metrics handler. A nil prometheus handler
// answers the scrape endpoint with 503.
func NewMetricsHandler(prometheus http.Handler, system *infrastructure.SystemMetrics, health *services.HealthService) *MetricsHandler {
	return &MetricsHandler{
		prometheus: prometheus,
		system:     system,
		health:     health,
	}
}

// Routes returns the JSON metrics routes mounted under /api/metrics
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/system", h.GetSystemMetrics)
	return r
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics exporter disabled", http.StatusServiceUnavailable)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetSystemMetrics handles GET /api/metrics/system
func (h *MetricsHandler) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	stats := h.system.Collect()
	data := stats.FormatStats()
	if h.health != nil {
		data["websocket_sessions"] = h.health.Sessions()
	}

	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      data,
		"timestamp": stats.Timestamp,
	})
}
