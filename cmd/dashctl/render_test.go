package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stockdash/internal/exporter"
	"stockdash/internal/shared/testutil"
	"stockdash/internal/validation"
	"stockdash/pkg/contracts/domain"
)

func writePriceFiles(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	spx, tsla := testutil.SPX(), testutil.TSLA()

	a := filepath.Join(dir, spx.FileName())
	b := filepath.Join(dir, tsla.FileName())
	require.NoError(t, os.WriteFile(a, spx.CSV(), 0644))
	require.NoError(t, os.WriteFile(b, tsla.CSV(), 0644))
	return dir, a, b
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRender_AllOutputs(t *testing.T) {
	dir, a, b := writePriceFiles(t)
	jsonPath := filepath.Join(dir, "out", "dashboard.json")
	svgDir := filepath.Join(dir, "charts")
	merged := filepath.Join(dir, "merged.xlsx")

	out, _, err := execute(t, "render", a, b,
		"--json", jsonPath, "--svg-dir", svgDir, "--merged", merged, "--volume-bar")
	require.NoError(t, err)

	assert.Contains(t, out, "sources: S&P500.csv, TSLA.csv")
	assert.Contains(t, out, "state: ready")
	assert.Contains(t, out, "date column: Date")
	assert.Equal(t, 6, strings.Count(out, "figure written to"))
	assert.Contains(t, out, "merged dataset written to "+merged)
	assert.Contains(t, out, "CORRELATION")

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(raw, &dash))
	assert.Equal(t, domain.StateReady, dash.State)
	assert.Len(t, dash.Figures, 6)
	assert.Len(t, dash.Correlations, 3)

	entries, err := os.ReadDir(svgDir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	svg, err := os.ReadFile(filepath.Join(svgDir, "close-comparison.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	wb, err := excelize.OpenFile(merged)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{exporter.DataSheet, exporter.CorrelationSheet}, wb.GetSheetList())
}

func TestRender_JSONToStdout(t *testing.T) {
	_, a, b := writePriceFiles(t)

	out, _, err := execute(t, "render", a, b, "--json", "-")
	require.NoError(t, err)

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &dash))
	assert.Equal(t, domain.StateReady, dash.State)
}

func TestRender_MergedCSV(t *testing.T) {
	dir, a, b := writePriceFiles(t)
	merged := filepath.Join(dir, "merged.csv")

	_, _, err := execute(t, "render", a, b, "--merged", merged)
	require.NoError(t, err)

	raw, err := os.ReadFile(merged)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 41)
	assert.True(t, strings.HasPrefix(lines[0], "\ufeffDate,"))
}

func TestRender_Errors(t *testing.T) {
	dir, a, b := writePriceFiles(t)
	notes := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(notes, []byte("{}"), 0644))

	tests := []struct {
		name    string
		args    []string
		target  error
		message string
	}{
		{
			name:   "single file cannot be compared",
			args:   []string{"render", a},
			target: errNotReady,
		},
		{
			name:   "unsupported extension",
			args:   []string{"render", notes},
			target: validation.ErrUnsupportedExtension,
		},
		{
			name:    "missing file",
			args:    []string{"render", filepath.Join(dir, "missing.csv")},
			message: "does not exist",
		},
		{
			name:    "bad merged extension",
			args:    []string{"render", a, b, "--merged", filepath.Join(dir, "out.txt")},
			message: "--merged must end in .csv or .xlsx",
		},
		{
			name:    "too many files",
			args:    []string{"render", a, b, a},
			message: "accepts between 1 and 2 arg(s)",
		},
		{
			name:    "bad log level",
			args:    []string{"render", a, "--log-level", "loud"},
			message: "invalid --log-level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestRender_NotReadyStillWritesJSON(t *testing.T) {
	dir, a, _ := writePriceFiles(t)
	jsonPath := filepath.Join(dir, "single.json")

	out, _, err := execute(t, "render", a, "--json", jsonPath)
	require.ErrorIs(t, err, errNotReady)
	assert.Contains(t, out, "state: error")

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(raw, &dash))
	assert.Equal(t, domain.StateError, dash.State)
	assert.NotEmpty(t, dash.Message)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stockdash v")
	assert.Contains(t, out, "api v1")
}
