package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/dataset"
)

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRows("prices", []string{"Date", "SPX Close", "TSLA Close"}, [][]string{
		{"01/02/2023", "4000", "110"},
		{"2023-01-03", "4005.5", ""},
		{"2023-01-04", "4010", "113"},
	})
	require.NoError(t, err)
	return ds
}

func TestCSVWriterWriteDataset(t *testing.T) {
	tests := []struct {
		name string
		bom  bool
	}{
		{"without BOM", false},
		{"with BOM", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewCSVWriter(nil)
			require.NoError(t, w.WriteDataset(&buf, sampleDataset(t), tt.bom))

			data := buf.Bytes()
			assert.Equal(t, tt.bom, bytes.HasPrefix(data, utf8BOM))
			data = bytes.TrimPrefix(data, utf8BOM)

			records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 4)
			assert.Equal(t, []string{"Date", "SPX Close", "TSLA Close"}, records[0])
			assert.Equal(t, []string{"2023-01-02", "4000", "110"}, records[1])
			assert.Equal(t, []string{"2023-01-03", "4005.5", ""}, records[2])
		})
	}
}

func TestCSVWriterWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "merged.csv")

	w := NewCSVWriter(nil)
	require.NoError(t, w.WriteFile(path, sampleDataset(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "SPX Close")
}
