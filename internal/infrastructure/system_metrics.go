package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemStats holds current process statistics
type SystemStats struct {
	GoRoutines    int64         `json:"goroutines"`
	HeapAlloc     int64         `json:"heap_alloc_bytes"`
	HeapSystem    int64         `json:"heap_system_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// SystemMetrics samples runtime statistics and exposes them as observable gauges
type SystemMetrics struct {
	startTime time.Time
}

// NewSystemMetrics registers runtime gauges on meter. A nil meter only enables Collect.
func NewSystemMetrics(meter metric.Meter, startTime time.Time) (*SystemMetrics, error) {
	sm := &SystemMetrics{startTime: startTime}
	if meter == nil {
		return sm, nil
	}

	goRoutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_heap_alloc_bytes",
		metric.WithDescription("Heap bytes allocated and in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		stats := sm.Collect()
		o.ObserveInt64(goRoutines, stats.GoRoutines)
		o.ObserveInt64(heapAlloc, stats.HeapAlloc)
		o.ObserveFloat64(uptime, stats.ProcessUptime.Seconds())
		return nil
	}, goRoutines, heapAlloc, uptime)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// Collect samples the current runtime statistics
func (sm *SystemMetrics) Collect() SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     int64(memStats.HeapAlloc),
		HeapSystem:    int64(memStats.HeapSys),
		GCCount:       memStats.NumGC,
		LastGCPause:   time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(sm.startTime),
		Timestamp:     time.Now(),
	}
}

// FormatStats returns a human-readable representation of system stats
func (stats SystemStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":       stats.GoRoutines,
		"heap_alloc_mb":    stats.HeapAlloc / 1024 / 1024,
		"heap_system_mb":   stats.HeapSystem / 1024 / 1024,
		"gc_count":         stats.GCCount,
		"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
		"cpu_count":        stats.CPUCount,
		"uptime_seconds":   int64(stats.ProcessUptime.Seconds()),
	}
}
