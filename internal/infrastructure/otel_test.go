package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestOTelInitialization(t *testing.T) {
	cfg := NewOTelConfig(config.Default().Telemetry, "test")
	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// tracing disabled by default: a no-op tracer is still available
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitializationErrors(t *testing.T) {
	_, err := InitializeOTel(nil, testLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "jaeger"}, testLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	_, err = InitializeOTel(&OTelConfig{MetricExporter: "statsd"}, testLogger())
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

func TestDashboardMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "stockdash-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateDashboardMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordDashboardPass(ctx, metrics, "upload", "ready", 25*time.Millisecond, 40)
	RecordUpload(ctx, metrics, "csv", 2048)

	_, err = NewSystemMetrics(providers.Meter, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "dashboard_passes")
	assert.Contains(t, text, "dashboard_upload_bytes")
	assert.Contains(t, text, "system_goroutines")
	assert.Contains(t, text, "go_goroutines")
}

func TestRecordHelpersTolerateNilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDashboardPass(context.Background(), nil, "cli", "ready", time.Second, 1)
		RecordUpload(context.Background(), nil, "csv", 1)
		RecordFiguresRendered(context.Background(), nil, "html", 4)
		RecordWebSocketSession(context.Background(), nil, 1)
	})
}

func TestSystemMetricsCollect(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	sm, err := NewSystemMetrics(nil, start)
	require.NoError(t, err)

	stats := sm.Collect()
	assert.Positive(t, stats.GoRoutines)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)

	formatted := stats.FormatStats()
	assert.Contains(t, formatted, "goroutines")
	assert.GreaterOrEqual(t, formatted["uptime_seconds"].(int64), int64(60))
}
