package testutil

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("keeps attributes from With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "dashboard")).Info("derived")

		AssertLogAttr(t, handler, "component", "dashboard")
		assert.Equal(t, 1, handler.Count())
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		require.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func(n int) {
				logger.Info("concurrent log", slog.Int("goroutine", n))
				done <- true
			}(i)
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		assert.Equal(t, 10, handler.Count())
		AssertNoErrors(t, handler)
	})
}

func TestPriceSeriesCSV(t *testing.T) {
	records, err := csv.NewReader(bytes.NewReader(TSLA().CSV())).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 41)
	assert.Equal(t, []string{"Date", "TSLA Open", "TSLA Close", "TSLA Volume"}, records[0])
	assert.Equal(t, "2023-01-02", records[1][0])
	assert.Equal(t, "110.00", records[1][2])

	assert.True(t, strings.HasPrefix(DataURL("text/csv", []byte("a")), "data:text/csv;base64,"))
}
