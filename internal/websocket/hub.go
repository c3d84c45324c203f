package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"stockdash/internal/infrastructure"
)

// ErrHubStopped is returned when a session registers after shutdown began
var ErrHubStopped = errors.New("websocket hub stopped")

// Hub tracks the open dashboard sessions
type Hub struct {
	sessions map[*Session]struct{}
	mu       sync.RWMutex

	metrics *infrastructure.DashboardMetrics
	logger  *slog.Logger

	totalSessions int64
	stopped       bool
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		sessions: make(map[*Session]struct{}),
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "websocket.hub")),
	}
}

// Register adds a session to the hub
func (h *Hub) Register(ctx context.Context, s *Session) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrHubStopped
	}
	h.sessions[s] = struct{}{}
	h.totalSessions++
	count := len(h.sessions)
	h.mu.Unlock()

	infrastructure.RecordWebSocketSession(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "Session registered",
		slog.String("session_id", s.id),
		slog.String("remote_addr", s.remoteAddr),
		slog.Int("active_sessions", count))
	return nil
}

// Unregister removes a session and closes its send queue. Repeated calls are no-ops.
func (h *Hub) Unregister(ctx context.Context, s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s)
	close(s.send)
	count := len(h.sessions)
	h.mu.Unlock()

	infrastructure.RecordWebSocketSession(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "Session unregistered",
		slog.String("session_id", s.id),
		slog.Int("active_sessions", count),
		slog.Duration("connection_duration", time.Since(s.connectedAt)))
}

// SessionCount returns the number of open sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Stop refuses new sessions and closes the open connections. Each session
// unregisters itself once its read pump notices the close.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	open := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		open = append(open, s)
	}
	total := h.totalSessions
	h.mu.Unlock()

	for _, s := range open {
		s.conn.Close()
	}
	h.logger.Info("Hub stopped",
		slog.Int("closed_sessions", len(open)),
		slog.Int64("total_sessions", total))
}
