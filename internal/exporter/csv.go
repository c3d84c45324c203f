package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"stockdash/internal/dataset"
)

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// Write writes headers and records to w
func (cw *CSVWriter) Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDataset writes ds with normalized cells (ISO dates, missing values blank)
func (cw *CSVWriter) WriteDataset(w io.Writer, ds *dataset.Dataset, bom bool) error {
	headers, records := ds.Records()
	cw.logger.Debug("Writing dataset as CSV",
		slog.String("dataset", datasetName(ds)),
		slog.Int("record_count", len(records)))

	return cw.Write(w, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: bom,
	})
}

// WriteFile writes ds to filePath, creating parent directories
func (cw *CSVWriter) WriteFile(filePath string, ds *dataset.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := cw.WriteDataset(file, ds, true); err != nil {
		file.Close()
		return err
	}

	cw.logger.Info("CSV file written",
		slog.String("file_path", filePath),
		slog.Int("record_count", ds.Rows()))
	return file.Close()
}

func datasetName(ds *dataset.Dataset) string {
	if ds == nil {
		return ""
	}
	return ds.Name
}
