package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "stockdash/internal/errors"
	"stockdash/internal/shared/testutil"
)

func TestClientLogHandler_Handle(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewClientLogHandler(logger, apierrors.NewErrorHandler(logger, false))

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedLevel  slog.Level
	}{
		{
			name:           "error entry",
			body:           `{"level":"error","message":"chart failed","source":"dashboard_page","data":{"figure":"close"}}`,
			expectedStatus: http.StatusOK,
			expectedLevel:  slog.LevelError,
		},
		{
			name:           "missing level defaults to info",
			body:           `{"message":"page loaded"}`,
			expectedStatus: http.StatusOK,
			expectedLevel:  slog.LevelInfo,
		},
		{
			name:           "unknown level",
			body:           `{"level":"fatal","message":"boom"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing message",
			body:           `{"level":"info"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			body:           `invalid json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Clear()

			req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Handle(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, "success", response["status"])
			assert.NotEmpty(t, logs.GetRecordsByLevel(tt.expectedLevel))
		})
	}
}
