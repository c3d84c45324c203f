package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockdash/internal/config"
	apierrors "stockdash/internal/errors"
	"stockdash/internal/infrastructure"
	"stockdash/internal/middleware"
	"stockdash/internal/services"
	"stockdash/pkg/contracts"
	api "stockdash/pkg/contracts/api/v1"
	"stockdash/pkg/contracts/domain"
	"stockdash/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Outbound frames queued per session
	sendBuffer = 16

	defaultPongWait = 60 * time.Second
)

// Error frame codes
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeUnsupportedMessage = "UNSUPPORTED_MESSAGE"
	CodeInvalidSnapshot    = "INVALID_SNAPSHOT"
	CodeDashboardError     = "DASHBOARD_ERROR"
	CodeSnapshotFailed     = "SNAPSHOT_FAILED"
)

// inboundMessage is the envelope of a client frame
type inboundMessage struct {
	ID   string             `json:"id,omitempty"`
	Type events.MessageType `json:"type"`
	Data json.RawMessage    `json:"data,omitempty"`
}

// Session is one dashboard connection. Snapshots are handled in arrival
// order on the read pump; replies go out through the write pump.
type Session struct {
	hub      *Hub
	conn     Connection
	service  SnapshotService
	validate *validator.Validate
	tracer   trace.Tracer

	// Buffered channel of outbound frames, closed by the hub on unregister
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	readLimit  int64
	pingPeriod time.Duration
	pongWait   time.Duration

	logger *slog.Logger

	messagesReceived int64
	messagesSent     int64
}

// NewSession creates a session over conn
func NewSession(hub *Hub, conn Connection, service SnapshotService, cfg config.WebSocketConfig, traceID string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	// pings must arrive before the peer's read deadline
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}

	id := uuid.New().String()
	return &Session{
		hub:         hub,
		conn:        conn,
		service:     service,
		validate:    middleware.NewValidator(),
		tracer:      otel.Tracer(infrastructure.InstrumentationName + ".websocket"),
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		readLimit:   cfg.ReadLimit,
		pingPeriod:  cfg.PingPeriod,
		pongWait:    cfg.PongWait,
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("session_id", id),
		),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// ReadPump reads client frames until the connection fails or closes
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.hub.Unregister(ctx, s)
		s.conn.Close()
		s.logger.InfoContext(ctx, "WebSocket session closed (readPump)",
			slog.Duration("connection_duration", time.Since(s.connectedAt)),
			slog.Int64("messages_received", s.messagesReceived))
	}()

	if s.readLimit > 0 {
		s.conn.SetReadLimit(s.readLimit)
	}
	s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		msgType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.WarnContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		s.messagesReceived++

		if msgType != websocket.TextMessage {
			s.enqueue(ctx, s.errorFrame("", CodeUnsupportedMessage, "only text frames are accepted"))
			continue
		}
		if reply := s.handle(ctx, message); reply != nil {
			s.enqueue(ctx, *reply)
		}
	}
}

// WritePump writes queued frames and keeps the connection alive with pings
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.logger.DebugContext(ctx, "WebSocket write pump stopped",
			slog.Int64("messages_sent", s.messagesSent))
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.WarnContext(ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			s.messagesSent++
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// handle answers one client frame. A nil reply means nothing is sent back.
func (s *Session) handle(ctx context.Context, raw []byte) *events.WebSocketMessage {
	var in inboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		msg := s.errorFrame("", CodeInvalidMessage, "message is not valid JSON")
		return &msg
	}

	switch in.Type {
	case events.MessageTypeHeartbeat:
		return nil
	case events.MessageTypeSnapshot:
	default:
		msg := s.errorFrame(in.ID, CodeUnsupportedMessage, "unsupported message type "+string(in.Type))
		return &msg
	}

	var req api.SnapshotRequest
	if len(in.Data) == 0 {
		msg := s.errorFrame(in.ID, CodeInvalidSnapshot, "snapshot data is required")
		return &msg
	}
	if err := json.Unmarshal(in.Data, &req); err != nil {
		msg := s.errorFrame(in.ID, CodeInvalidSnapshot, "snapshot data is malformed")
		return &msg
	}
	if err := s.validate.Struct(req); err != nil {
		msg := s.errorFrame(in.ID, CodeInvalidSnapshot, err.Error())
		return &msg
	}

	ctx, span := s.tracer.Start(ctx, "websocket.snapshot",
		trace.WithAttributes(
			attribute.String("websocket.session_id", s.id),
			attribute.Int("snapshot.rows", len(req.Rows)),
		))
	defer span.End()

	pass, err := s.service.FromSnapshot(ctx, services.SourceWebSocket, req, s.service.Options(req.Options))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		code, detail := errorCode(err)
		s.logger.WarnContext(ctx, "snapshot rejected",
			slog.String("code", code),
			slog.String("error", err.Error()))
		msg := s.errorFrame(in.ID, code, detail)
		return &msg
	}

	dash := pass.Dashboard
	span.SetAttributes(attribute.String("dashboard.state", string(dash.State)))

	switch dash.State {
	case domain.StateReady:
		msg := events.NewMessage(in.ID, events.MessageTypeDashboard, s.traceID, dash)
		return &msg
	case domain.StateError:
		msg := s.errorFrame(in.ID, CodeDashboardError, dash.Message)
		return &msg
	default:
		return nil
	}
}

// enqueue hands a frame to the write pump, dropping it when the queue is full
func (s *Session) enqueue(ctx context.Context, msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode frame",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case s.send <- data:
	default:
		s.logger.WarnContext(ctx, "send queue full, frame dropped",
			slog.String("type", string(msg.Type)))
	}
}

func (s *Session) connectFrame() events.WebSocketMessage {
	return events.NewMessage(s.id, events.MessageTypeConnect, s.traceID, events.ConnectData{
		SessionID:  s.id,
		APIVersion: contracts.APIVersion,
	})
}

func (s *Session) errorFrame(id, code, message string) events.WebSocketMessage {
	return events.NewMessage(id, events.MessageTypeError, s.traceID, events.ErrorData{
		Code:    code,
		Message: message,
	})
}

// errorCode maps a service error to an error frame code and message
func errorCode(err error) (string, string) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode, apiErr.Message
	}
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Type == apierrors.ErrTypeParsing || appErr.Type == apierrors.ErrTypeValidation {
			return CodeInvalidSnapshot, appErr.Error()
		}
	}
	return CodeSnapshotFailed, err.Error()
}
