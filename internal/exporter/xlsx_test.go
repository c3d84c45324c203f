package exporter

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockdash/pkg/contracts/domain"
)

func TestXLSXWriterWrite(t *testing.T) {
	correlations := []domain.CorrelationRecord{
		{Metric: domain.RoleClose, Columns: []string{"SPX Close", "TSLA Close"}, Correlation: 0.5, Defined: true, Samples: 2},
		{Metric: domain.RoleVolume, Columns: []string{"SPX Volume", "TSLA Volume"}, Correlation: domain.Number(math.NaN()), Samples: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter(nil).Write(&buf, sampleDataset(t), correlations))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DataSheet, CorrelationSheet}, f.GetSheetList())

	rows, err := f.GetRows(DataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "SPX Close", "TSLA Close"}, rows[0])
	assert.Equal(t, "2023-01-02", rows[1][0])
	assert.Equal(t, "4005.5", rows[2][1])

	// missing numeric cell stays empty
	missing, err := f.GetCellValue(DataSheet, "C3")
	require.NoError(t, err)
	assert.Empty(t, missing)

	corr, err := f.GetRows(CorrelationSheet)
	require.NoError(t, err)
	require.Len(t, corr, 3)
	assert.Equal(t, []string{"Metric", "Columns", "Pearson Correlation", "Samples"}, corr[0])
	assert.Equal(t, "Close", corr[1][0])
	assert.Equal(t, "SPX Close vs TSLA Close", corr[1][1])
	assert.Equal(t, "0.5", corr[1][2])
	undefined, err := f.GetCellValue(CorrelationSheet, "C3")
	require.NoError(t, err)
	assert.Empty(t, undefined)
	samples, err := f.GetCellValue(CorrelationSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "1", samples)
}
