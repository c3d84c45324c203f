package websocket

import (
	"context"
	"time"

	"stockdash/internal/services"
	api "stockdash/pkg/contracts/api/v1"
)

// Connection defines the interface for WebSocket connections
// This allows for proper mocking in tests
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// SnapshotService builds dashboards from edited table snapshots
type SnapshotService interface {
	Options(o *api.DashboardOptions) services.PassOptions
	FromSnapshot(ctx context.Context, source string, req api.SnapshotRequest, opts services.PassOptions) (*services.Pass, error)
}
