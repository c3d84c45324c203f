package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/infrastructure"
	"stockdash/internal/services"
	"stockdash/pkg/contracts"
)

func TestHealthHandler_Endpoints(t *testing.T) {
	svc, logger := newTestDashboardService(t)
	handler := NewHealthHandler(services.NewHealthService(svc, nil, nil, logger), logger)

	r := chi.NewRouter()
	r.Mount("/api/health", handler.Routes())
	r.Get("/api/version", handler.Version)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantKey    string
		wantValue  interface{}
	}{
		{"health", "/api/health/", http.StatusOK, "status", "ok"},
		{"ready", "/api/health/ready", http.StatusOK, "status", "ready"},
		{"live", "/api/health/live", http.StatusOK, "status", "alive"},
		{"version", "/api/version", http.StatusOK, "version", contracts.Version},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantValue, body[tt.wantKey])
		})
	}
}

func TestHealthHandler_NotReady(t *testing.T) {
	_, logger := newTestDashboardService(t)
	handler := NewHealthHandler(services.NewHealthService(nil, nil, nil, logger), logger)

	rec := httptest.NewRecorder()
	handler.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestMetricsHandler(t *testing.T) {
	system, err := infrastructure.NewSystemMetrics(nil, time.Now())
	require.NoError(t, err)

	prom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# HELP dashboard_passes_total\n"))
	})

	t.Run("scrape", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewMetricsHandler(prom, system, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "# HELP"))
	})

	t.Run("exporter disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewMetricsHandler(nil, system, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("system", func(t *testing.T) {
		svc, logger := newTestDashboardService(t)
		h := NewMetricsHandler(prom, system, services.NewHealthService(svc, nil, system, logger))

		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/system", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Status string                 `json:"status"`
			Data   map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		assert.Contains(t, body.Data, "goroutines")
		assert.EqualValues(t, 0, body.Data["websocket_sessions"])
	})
}
