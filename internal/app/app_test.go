package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/config"
	"stockdash/internal/shared/testutil"
	"stockdash/pkg/contracts/domain"
	"stockdash/pkg/contracts/events"
)

// createTestLogger creates a logger that discards output for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Security.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	app, err := New(cfg, createTestLogger())
	require.NoError(t, err)
	return app
}

func priceUpload(t *testing.T, target string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range []testutil.PriceSeries{testutil.SPX(), testutil.TSLA()} {
		fw, err := mw.CreateFormFile("files", p.FileName())
		require.NoError(t, err)
		_, err = fw.Write(p.CSV())
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil, createTestLogger())
		assert.Error(t, err)
	})

	t.Run("wires services", func(t *testing.T) {
		app := newTestApp(t, nil)
		require.NotNil(t, app.Router)
		require.NotNil(t, app.Server)
		require.NotNil(t, app.Services)
		assert.NotNil(t, app.Services.Dashboard)
		assert.NotNil(t, app.Services.Health)
		assert.NotNil(t, app.Services.Renderer)
		assert.NotNil(t, app.WebSocketHub)
		assert.Equal(t, ":0", app.Server.Addr)
		assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)
	})
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name        string
		method      string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{name: "upload page", method: http.MethodGet, path: "/", status: http.StatusOK, contentType: "text/html", contains: "Stock Dashboard"},
		{name: "health", method: http.MethodGet, path: "/api/health", status: http.StatusOK, contains: `"ok"`},
		{name: "liveness", method: http.MethodGet, path: "/api/health/live", status: http.StatusOK, contains: "alive"},
		{name: "readiness", method: http.MethodGet, path: "/api/health/ready", status: http.StatusOK, contains: "ready"},
		{name: "version", method: http.MethodGet, path: "/api/version", status: http.StatusOK, contains: "api_version"},
		{name: "system metrics", method: http.MethodGet, path: "/api/metrics/system", status: http.StatusOK, contains: "websocket_sessions"},
		{name: "prometheus", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, contains: "Not Found"},
		{name: "wrong method", method: http.MethodGet, path: "/api/dashboard/snapshot", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType)
			}
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestApplication_DashboardUpload(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, priceUpload(t, "/api/dashboard"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status string           `json:"status"`
		Data   domain.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, domain.StateReady, resp.Data.State)
	assert.Len(t, resp.Data.Figures, 6)
	assert.Len(t, resp.Data.Correlations, 3)
}

func TestApplication_HTMLDashboard(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, priceUpload(t, "/dashboard"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `id="close-comparison"`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Pearson Correlation")
}

func TestApplication_BodyLimit(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Upload.MaxBytes = 64
		c.Upload.MaxFiles = 1
	})
	assert.Equal(t, int64(128), app.bodyLimit())

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, priceUpload(t, "/api/dashboard"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestApplication_CORSConfig(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Security.AllowedOrigins = []string{"http://dash.local"}
	})

	cors := app.corsConfig()
	assert.Equal(t, []string{"http://dash.local"}, cors.AllowedOrigins)
	assert.Contains(t, cors.AllowedMethods, http.MethodPost)
	assert.Contains(t, cors.ExposedHeaders, "Content-Disposition")
}

func TestApplication_Serve(t *testing.T) {
	app := newTestApp(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var connect events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &connect))
	assert.Equal(t, events.MessageTypeConnect, connect.Type)
	assert.Eventually(t, func() bool { return app.WebSocketHub.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return app.WebSocketHub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
