package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/config"
	"stockdash/internal/dataprocessing"
	"stockdash/internal/services"
	"stockdash/internal/shared/testutil"
	"stockdash/pkg/contracts/domain"
	"stockdash/pkg/contracts/events"
)

// frame is a decoded server frame
type frame struct {
	ID      string             `json:"id"`
	Type    events.MessageType `json:"type"`
	TraceID string             `json:"trace_id"`
	Data    json.RawMessage    `json:"data"`
}

func decodeFrame(t *testing.T, data []byte) frame {
	t.Helper()
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func errorData(t *testing.T, f frame) events.ErrorData {
	t.Helper()
	require.Equal(t, events.MessageTypeError, f.Type)
	var d events.ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &d))
	return d
}

func newTestConfig(mutate func(*config.Config)) *config.Config {
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func newTestSession(t *testing.T, cfg *config.Config) (*Session, *MockConnection, *Hub) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewDashboardService(cfg, nil, nil, logger)
	hub := NewHub(nil, logger)
	conn := NewMockConnection()
	return NewSession(hub, conn, svc, cfg.WebSocket, "trace-1", logger), conn, hub
}

func snapshotRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, n)
	for i := range rows {
		rows[i] = map[string]interface{}{
			"Date":        testutil.FixtureStart.AddDate(0, 0, i).Format("2006-01-02"),
			"close_sp":    4000 + float64(i)*5,
			"close_tsla":  110 + float64(i%7),
			"volume_sp":   float64(1000000 + i*1000),
			"volume_tsla": float64(2000000 - i*500),
		}
	}
	return rows
}

func snapshotFrame(t *testing.T, id string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": events.MessageTypeSnapshot,
		"data": data,
	})
	require.NoError(t, err)
	return raw
}

func TestSession_Handle(t *testing.T) {
	session, _, _ := newTestSession(t, newTestConfig(nil))
	ctx := context.Background()

	t.Run("ready snapshot answers with the dashboard", func(t *testing.T) {
		reply := session.handle(ctx, snapshotFrame(t, "req-1", map[string]interface{}{"rows": snapshotRows(40)}))
		require.NotNil(t, reply)
		assert.Equal(t, events.MessageTypeDashboard, reply.Type)
		assert.Equal(t, "req-1", reply.ID)
		assert.Equal(t, "trace-1", reply.TraceID)

		dash, ok := reply.Data.(domain.Dashboard)
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, dash.State)
		assert.Equal(t, "Date", dash.DateColumn)
		assert.Len(t, dash.Figures, 4)
		assert.Equal(t, []string{"snapshot"}, dash.Sources)
	})

	t.Run("empty grid sends nothing", func(t *testing.T) {
		reply := session.handle(ctx, snapshotFrame(t, "req-2", map[string]interface{}{"rows": []interface{}{}}))
		assert.Nil(t, reply)
	})

	t.Run("heartbeat sends nothing", func(t *testing.T) {
		assert.Nil(t, session.handle(ctx, []byte(`{"type":"heartbeat"}`)))
	})

	errorTests := []struct {
		name    string
		raw     []byte
		code    string
		message string
	}{
		{
			name: "invalid json",
			raw:  []byte(`{not json`),
			code: CodeInvalidMessage,
		},
		{
			name: "unknown type",
			raw:  []byte(`{"id":"x","type":"dashboard:reset"}`),
			code: CodeUnsupportedMessage,
		},
		{
			name: "missing data",
			raw:  []byte(`{"id":"x","type":"dashboard:snapshot"}`),
			code: CodeInvalidSnapshot,
		},
		{
			name: "rows missing",
			raw:  []byte(`{"id":"x","type":"dashboard:snapshot","data":{"name":"grid"}}`),
			code: CodeInvalidSnapshot,
		},
		{
			name: "bad column kind",
			raw:  []byte(`{"id":"x","type":"dashboard:snapshot","data":{"rows":[],"columns":[{"name":"a","kind":"money"}]}}`),
			code: CodeInvalidSnapshot,
		},
		{
			name: "no date column",
			raw: snapshotFrame(t, "x", map[string]interface{}{
				"columns": []map[string]string{{"name": "close_sp"}, {"name": "close_tsla"}},
				"rows":    snapshotRows(5),
			}),
			code:    CodeDashboardError,
			message: dataprocessing.ErrMissingDateColumn.Error(),
		},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			reply := session.handle(ctx, tt.raw)
			require.NotNil(t, reply)
			assert.Equal(t, events.MessageTypeError, reply.Type)

			data, ok := reply.Data.(events.ErrorData)
			require.True(t, ok)
			assert.Equal(t, tt.code, data.Code)
			assert.False(t, data.Fatal)
			if tt.message != "" {
				assert.Equal(t, tt.message, data.Message)
			}
		})
	}
}

func TestSession_HandleRowLimit(t *testing.T) {
	session, _, _ := newTestSession(t, newTestConfig(func(c *config.Config) {
		c.Upload.MaxRows = 10
	}))

	reply := session.handle(context.Background(), snapshotFrame(t, "big", map[string]interface{}{"rows": snapshotRows(40)}))
	require.NotNil(t, reply)
	data, ok := reply.Data.(events.ErrorData)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidSnapshot, data.Code)
	assert.Equal(t, "big", reply.ID)
}

func TestSession_ReadPump(t *testing.T) {
	session, conn, hub := newTestSession(t, newTestConfig(nil))
	ctx := context.Background()
	require.NoError(t, hub.Register(ctx, session))
	assert.Equal(t, 1, hub.SessionCount())

	conn.AddReadMessage([]byte(`{"type":"heartbeat"}`))
	conn.AddReadMessage(snapshotFrame(t, "a", map[string]interface{}{"rows": snapshotRows(40)}))
	conn.AddReadMessage([]byte(`nope`))
	conn.ReadMessages = append(conn.ReadMessages, MockMessage{Type: websocket.BinaryMessage, Data: []byte{1, 2}})

	session.ReadPump(ctx)

	assert.Equal(t, 0, hub.SessionCount())
	assert.True(t, conn.IsClosed())
	assert.Equal(t, int64(1<<24), conn.ReadLimit)
	assert.False(t, conn.ReadDeadline.IsZero())
	require.NotNil(t, conn.PongHandler)

	var frames []frame
	for data := range session.send {
		frames = append(frames, decodeFrame(t, data))
	}
	require.Len(t, frames, 3)
	assert.Equal(t, events.MessageTypeDashboard, frames[0].Type)
	assert.Equal(t, "a", frames[0].ID)
	assert.Equal(t, CodeInvalidMessage, errorData(t, frames[1]).Code)
	assert.Equal(t, CodeUnsupportedMessage, errorData(t, frames[2]).Code)
}

func TestSession_WritePump(t *testing.T) {
	session, conn, hub := newTestSession(t, newTestConfig(nil))
	ctx := context.Background()
	require.NoError(t, hub.Register(ctx, session))

	session.enqueue(ctx, session.connectFrame())
	session.enqueue(ctx, session.errorFrame("id-1", CodeInvalidSnapshot, "bad"))
	hub.Unregister(ctx, session)

	session.WritePump(ctx)

	written := conn.GetWrittenMessages()
	require.Len(t, written, 3)

	connect := decodeFrame(t, written[0].Data)
	assert.Equal(t, events.MessageTypeConnect, connect.Type)
	var cd events.ConnectData
	require.NoError(t, json.Unmarshal(connect.Data, &cd))
	assert.Equal(t, session.ID(), cd.SessionID)
	assert.Equal(t, "v1", cd.APIVersion)

	assert.Equal(t, "bad", errorData(t, decodeFrame(t, written[1].Data)).Message)
	assert.Equal(t, websocket.CloseMessage, written[2].Type)
	assert.True(t, conn.IsClosed())
}

func TestSession_EnqueueDropsWhenFull(t *testing.T) {
	session, _, _ := newTestSession(t, newTestConfig(nil))
	logger, logs := testutil.NewTestLogger(t)
	session.logger = logger

	for i := 0; i < sendBuffer+3; i++ {
		session.enqueue(context.Background(), session.connectFrame())
	}
	assert.Len(t, session.send, sendBuffer)
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelWarn), 3)
}

func TestNewSession_PingPeriodBelowPongWait(t *testing.T) {
	cfg := config.Default().WebSocket
	cfg.PingPeriod = 0
	cfg.PongWait = 0

	logger, _ := testutil.NewTestLogger(t)
	s := NewSession(NewHub(nil, logger), NewMockConnection(), nil, cfg, "", logger)
	assert.Equal(t, defaultPongWait, s.pongWait)
	assert.Less(t, s.pingPeriod, s.pongWait)
	assert.Greater(t, s.pingPeriod, time.Duration(0))
}
