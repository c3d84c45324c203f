package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

const (
	// DataSheet holds the merged dataset
	DataSheet = "Data"
	// CorrelationSheet holds the correlation table
	CorrelationSheet = "Correlations"
)

// XLSXWriter exports a merged dataset and its correlation table as a workbook
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new XLSX writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// Write builds the workbook and writes it to w. Numeric cells are stored as
// numbers; everything else as text.
func (xw *XLSXWriter) Write(w io.Writer, ds *dataset.Dataset, correlations []domain.CorrelationRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("failed to name data sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeDataSheet(f, ds, header); err != nil {
		return err
	}

	if _, err := f.NewSheet(CorrelationSheet); err != nil {
		return fmt.Errorf("failed to create correlation sheet: %w", err)
	}
	if err := writeCorrelationSheet(f, correlations, header); err != nil {
		return err
	}

	xw.logger.Debug("Writing workbook",
		slog.String("dataset", datasetName(ds)),
		slog.Int("rows", ds.Rows()),
		slog.Int("correlations", len(correlations)))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook to filePath, creating parent directories
func (xw *XLSXWriter) WriteFile(filePath string, ds *dataset.Dataset, correlations []domain.CorrelationRecord) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := xw.Write(file, ds, correlations); err != nil {
		file.Close()
		return err
	}

	xw.logger.Info("XLSX file written", slog.String("file_path", filePath))
	return file.Close()
}

func writeDataSheet(f *excelize.File, ds *dataset.Dataset, headerStyle int) error {
	cols := ds.Columns()
	names := make([]interface{}, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	if err := setRow(f, DataSheet, 1, names); err != nil {
		return err
	}
	if err := styleHeader(f, DataSheet, len(cols), headerStyle); err != nil {
		return err
	}

	labels := make([][]string, len(cols))
	floats := make([][]float64, len(cols))
	for i, c := range cols {
		if c.Kind == dataset.KindNumeric {
			floats[i] = c.Floats()
		} else {
			labels[i] = c.Labels()
		}
	}

	for row := 0; row < ds.Rows(); row++ {
		values := make([]interface{}, len(cols))
		for i, c := range cols {
			if c.Kind == dataset.KindNumeric {
				if v := floats[i][row]; !math.IsNaN(v) {
					values[i] = v
				}
				continue
			}
			values[i] = labels[i][row]
		}
		if err := setRow(f, DataSheet, row+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeCorrelationSheet(f *excelize.File, records []domain.CorrelationRecord, headerStyle int) error {
	if err := setRow(f, CorrelationSheet, 1, []interface{}{"Metric", "Columns", "Pearson Correlation", "Samples"}); err != nil {
		return err
	}
	if err := styleHeader(f, CorrelationSheet, 4, headerStyle); err != nil {
		return err
	}

	for i, rec := range records {
		var corr interface{}
		if rec.Defined {
			corr = float64(rec.Correlation)
		}
		row := []interface{}{string(rec.Metric), strings.Join(rec.Columns, " vs "), corr, rec.Samples}
		if err := setRow(f, CorrelationSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, width, style int) error {
	if width == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(width, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
