// Package events contains the message contracts of the dashboard WebSocket.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// client → server
	MessageTypeSnapshot  MessageType = "dashboard:snapshot"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// server → client
	MessageTypeDashboard MessageType = "dashboard:update"
	MessageTypeConnect   MessageType = "connect"
	MessageTypeError     MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ConnectData is sent once after the upgrade
type ConnectData struct {
	SessionID  string `json:"session_id"`
	APIVersion string `json:"api_version"`
}

// ErrorData is the payload of an error frame
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fatal errors are followed by a close frame
	Fatal bool `json:"fatal"`
}

// NewMessage stamps a message with type, time and trace ID
func NewMessage(id string, msgType MessageType, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        id,
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}
