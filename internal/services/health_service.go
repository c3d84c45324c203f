package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"stockdash/internal/infrastructure"
	"stockdash/pkg/contracts"
)

// SessionCounter reports the number of open WebSocket sessions
type SessionCounter interface {
	SessionCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	dashboard *DashboardService
	sessions  SessionCounter
	system    *infrastructure.SystemMetrics
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. sessions may be nil when the
// WebSocket endpoint is not mounted.
func NewHealthService(dashboard *DashboardService, sessions SessionCounter, system *infrastructure.SystemMetrics, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	startTime := time.Now()
	if system == nil {
		system, _ = infrastructure.NewSystemMetrics(nil, startTime)
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version))

	return &HealthService{
		dashboard: dashboard,
		sessions:  sessions,
		system:    system,
		startTime: startTime,
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  make(map[string]interface{}),
	}

	status.Services["dashboard"] = hs.checkDashboardHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready",
			slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status with runtime statistics
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	runtimeInfo := hs.system.Collect().FormatStats()
	runtimeInfo["go_version"] = runtime.Version()

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   runtimeInfo,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDashboardHealth() ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "dashboard service not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "Dashboard service is healthy",
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{
			Status:  "ready",
			Message: "WebSocket endpoint disabled",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "WebSocket service is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// Sessions reports the number of open WebSocket sessions
func (hs *HealthService) Sessions() int {
	if hs.sessions == nil {
		return 0
	}
	return hs.sessions.SessionCount()
}
