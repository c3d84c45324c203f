package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"stockdash/internal/config"
	"stockdash/internal/infrastructure"
	"stockdash/internal/middleware"
)

// Handler upgrades /ws requests into dashboard sessions
type Handler struct {
	upgrader websocket.Upgrader
	hub      *Hub
	service  SnapshotService
	cfg      config.WebSocketConfig
	logger   *slog.Logger
}

// NewHandler creates the WebSocket endpoint handler
func NewHandler(cfg *config.Config, hub *Hub, service SnapshotService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     CheckOrigin(cfg.Security.AllowedOrigins),
		},
		hub:     hub,
		service: service,
		cfg:     cfg.WebSocket,
		logger:  logger.With(slog.String("component", "websocket.handler")),
	}
}

// ServeHTTP upgrades the connection, sends the connect frame and starts the pumps
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("error", err.Error()))
		return
	}

	// the session outlives the request
	ctx := context.WithoutCancel(infrastructure.EnsureTraceID(r.Context()))
	session := NewSession(h.hub, NewConnectionWrapper(conn), h.service, h.cfg, infrastructure.GetTraceID(ctx), h.logger)

	if err := h.hub.Register(ctx, session); err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	session.enqueue(ctx, session.connectFrame())

	go session.WritePump(ctx)
	go session.ReadPump(ctx)
}

// CheckOrigin accepts requests without an Origin header, same-host origins and
// the configured allowed origins. "*" allows any origin.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
