package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/config"
	"stockdash/internal/services"
	"stockdash/internal/shared/testutil"
	"stockdash/pkg/contracts/domain"
	"stockdash/pkg/contracts/events"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *Hub) {
	t.Helper()
	cfg := newTestConfig(mutate)
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(nil, logger)
	handler := NewHandler(cfg, hub, services.NewDashboardService(cfg, nil, nil, logger), logger)

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return decodeFrame(t, data)
}

func TestHandler_SnapshotRoundTrip(t *testing.T) {
	srv, hub := newTestServer(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	connect := readFrame(t, conn)
	require.Equal(t, events.MessageTypeConnect, connect.Type)
	var cd events.ConnectData
	require.NoError(t, json.Unmarshal(connect.Data, &cd))
	assert.NotEmpty(t, cd.SessionID)
	assert.NotEmpty(t, connect.TraceID)
	assert.Eventually(t, func() bool { return hub.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	// frames are answered in order; the empty grid produces no reply
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		snapshotFrame(t, "empty", map[string]interface{}{"rows": []interface{}{}})))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		snapshotFrame(t, "full", map[string]interface{}{"rows": snapshotRows(40)})))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"bad","type":"dashboard:snapshot","data":{"columns":[{"name":"x"}],"rows":[{"x":1}]}}`)))

	update := readFrame(t, conn)
	assert.Equal(t, events.MessageTypeDashboard, update.Type)
	assert.Equal(t, "full", update.ID)
	assert.Equal(t, connect.TraceID, update.TraceID)

	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(update.Data, &dash))
	assert.Equal(t, domain.StateReady, dash.State)
	assert.Len(t, dash.Figures, 4)
	require.NotNil(t, dash.Table)
	assert.Equal(t, 40, dash.Table.TotalRows)

	failed := readFrame(t, conn)
	assert.Equal(t, "bad", failed.ID)
	assert.Equal(t, CodeDashboardError, errorData(t, failed).Code)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	srv, hub := newTestServer(t, func(c *config.Config) {
		c.Security.AllowedOrigins = []string{"http://localhost:8050"}
	})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.SessionCount())
}

func TestHandler_StopClosesSessions(t *testing.T) {
	srv, hub := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// new sessions are turned away once stopped
	late, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{name: "no origin header", allowed: nil, origin: "", host: "a:1", want: true},
		{name: "listed origin", allowed: []string{"http://localhost:8050"}, origin: "http://localhost:8050", host: "x", want: true},
		{name: "trailing slash in config", allowed: []string{"http://localhost:8050/"}, origin: "http://localhost:8050", host: "x", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://anything", host: "x", want: true},
		{name: "same host", allowed: nil, origin: "http://dash.local:9000", host: "dash.local:9000", want: true},
		{name: "foreign origin", allowed: []string{"http://localhost:8050"}, origin: "http://evil.example", host: "localhost:8050", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, CheckOrigin(tt.allowed)(r))
		})
	}
}
