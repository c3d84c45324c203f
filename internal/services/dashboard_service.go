package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockdash/internal/config"
	"stockdash/internal/dataprocessing"
	"stockdash/internal/dataset"
	apperrors "stockdash/internal/errors"
	"stockdash/internal/exporter"
	"stockdash/internal/infrastructure"
	"stockdash/internal/validation"
	api "stockdash/pkg/contracts/api/v1"
	"stockdash/pkg/contracts/domain"
)

// Sources label the surface a pass was requested from in logs and metrics
const (
	SourceUpload    = "upload"
	SourceDataURL   = "data_url"
	SourceSnapshot  = "snapshot"
	SourceWebSocket = "websocket"
	SourceHTML      = "html"
	SourceCLI       = "cli"
)

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

const exportBaseName = "stockdash-merged"

// FileInput is one uploaded or local price file
type FileInput struct {
	Name string
	Data []byte
}

// PassOptions controls one derivation pass
type PassOptions struct {
	Figures     dataprocessing.FigureOptions
	PreviewRows int
}

// Pass is the outcome of one derivation pass
type Pass struct {
	Dashboard domain.Dashboard
	Result    dataprocessing.Result
	// Merged is the dataset the pass ran on, without derived columns
	Merged *dataset.Dataset
}

// Export is a merged dataset encoded for download
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DashboardService turns uploads and grid snapshots into dashboards
type DashboardService struct {
	cfg       config.DashboardConfig
	maxRows   int
	validator *validation.FileValidator
	csv       *exporter.CSVWriter
	xlsx      *exporter.XLSXWriter
	tracer    trace.Tracer
	metrics   *infrastructure.DashboardMetrics
	logger    *slog.Logger
}

// NewDashboardService creates a dashboard service. A nil tracer falls back to the
// global provider; nil metrics disable recording.
func NewDashboardService(cfg *config.Config, tracer trace.Tracer, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	logger.Info("DashboardService initialized",
		slog.Int("preview_rows", cfg.Dashboard.PreviewRows),
		slog.Int("max_files", cfg.Upload.MaxFiles),
		slog.Int("max_rows", cfg.Upload.MaxRows))

	return &DashboardService{
		cfg:       cfg.Dashboard,
		maxRows:   cfg.Upload.MaxRows,
		validator: validation.NewFileValidator(logger, cfg.Upload.MaxBytes, cfg.Upload.MaxFiles),
		csv:       exporter.NewCSVWriter(logger),
		xlsx:      exporter.NewXLSXWriter(logger),
		tracer:    tracer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Options resolves per-request overrides against the configured defaults
func (s *DashboardService) Options(o *api.DashboardOptions) PassOptions {
	opts := PassOptions{
		Figures: dataprocessing.FigureOptions{
			VolumeAsBar:    s.cfg.VolumeAsBar,
			VolumeLogScale: s.cfg.VolumeLogScale,
		},
		PreviewRows: s.cfg.PreviewRows,
	}
	if o == nil {
		return opts
	}
	if o.VolumeAsBar != nil {
		opts.Figures.VolumeAsBar = *o.VolumeAsBar
	}
	if o.VolumeLogScale != nil {
		opts.Figures.VolumeLogScale = *o.VolumeLogScale
	}
	if o.PreviewRows != nil {
		opts.PreviewRows = *o.PreviewRows
	}
	return opts
}

// Load validates, decodes and merges the given files. It returns the merged dataset and
// the file names in upload order.
func (s *DashboardService) Load(ctx context.Context, files []FileInput) (*dataset.Dataset, []string, error) {
	if err := s.validator.ValidateCount(len(files)); err != nil {
		return nil, nil, uploadError("", err)
	}

	sets := make([]*dataset.Dataset, 0, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := s.validator.ValidateUpload(f.Name, int64(len(f.Data))); err != nil {
			return nil, nil, uploadError(f.Name, err)
		}

		format, err := dataset.DetectFormat(f.Name, f.Data)
		if err != nil {
			return nil, nil, apperrors.NewParsingError("could not read "+f.Name, err).WithContext("file", f.Name)
		}
		infrastructure.RecordUpload(ctx, s.metrics, string(format), int64(len(f.Data)))

		ds, err := dataset.Decode(f.Name, f.Data)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to decode upload",
				slog.String("file", f.Name),
				slog.String("format", string(format)),
				slog.String("error", err.Error()))
			return nil, nil, apperrors.NewParsingError("could not read "+f.Name, err).WithContext("file", f.Name)
		}
		if err := s.checkRows(ds); err != nil {
			return nil, nil, err
		}

		s.logger.DebugContext(ctx, "decoded upload",
			slog.String("file", f.Name),
			slog.String("format", string(format)),
			slog.Int("rows", ds.Rows()),
			slog.Int("columns", ds.Width()))

		sets = append(sets, ds)
		names = append(names, f.Name)
	}

	merged, err := dataset.MergeAll(sets...)
	if err != nil {
		return nil, nil, apperrors.NewParsingError("could not merge uploads", err)
	}
	if err := s.checkRows(merged); err != nil {
		return nil, nil, err
	}
	return merged, names, nil
}

// FromFiles runs a pass over uploaded files
func (s *DashboardService) FromFiles(ctx context.Context, source string, files []FileInput, opts PassOptions) (*Pass, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.load",
		trace.WithAttributes(
			attribute.String("dashboard.source", source),
			attribute.Int("dashboard.files", len(files)),
		))
	defer span.End()

	merged, names, err := s.Load(ctx, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s.Derive(ctx, source, merged, names, opts), nil
}

// FromDataURLs runs a pass over files sent as data URLs
func (s *DashboardService) FromDataURLs(ctx context.Context, files []api.UploadFile, opts PassOptions) (*Pass, error) {
	inputs := make([]FileInput, 0, len(files))
	for _, f := range files {
		data, err := dataset.ParseDataURL(f.Content)
		if err != nil {
			return nil, apperrors.NewParsingError("could not read "+f.Name, err).WithContext("file", f.Name)
		}
		inputs = append(inputs, FileInput{Name: f.Name, Data: data})
	}
	return s.FromFiles(ctx, SourceDataURL, inputs, opts)
}

// FromSnapshot runs a pass over a table snapshot sent by an editable grid
func (s *DashboardService) FromSnapshot(ctx context.Context, source string, req api.SnapshotRequest, opts PassOptions) (*Pass, error) {
	specs := make([]dataset.ColumnSpec, len(req.Columns))
	for i, c := range req.Columns {
		specs[i] = dataset.ColumnSpec{Name: c.Name, Kind: dataset.ParseKind(c.Kind)}
	}

	name := req.Name
	if name == "" {
		name = "snapshot"
	}

	ds, err := dataset.FromRecords(name, specs, req.Rows)
	if err != nil {
		return nil, apperrors.NewParsingError("could not read snapshot", err)
	}
	if err := s.checkRows(ds); err != nil {
		return nil, err
	}
	return s.Derive(ctx, source, ds, []string{name}, opts), nil
}

// Derive runs the chart pipeline over ds and assembles the dashboard. Pipeline
// failures are reported in the dashboard state, never as an error.
func (s *DashboardService) Derive(ctx context.Context, source string, ds *dataset.Dataset, sources []string, opts PassOptions) *Pass {
	ctx, span := s.tracer.Start(ctx, "dashboard.derive",
		trace.WithAttributes(
			attribute.String("dashboard.source", source),
			attribute.Int("dashboard.rows", ds.Rows()),
			attribute.Int("dashboard.columns", ds.Width()),
		))
	defer span.End()

	start := time.Now()
	res := dataprocessing.Run(ds, opts.Figures)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.String("dashboard.state", string(res.State)),
		attribute.Int("dashboard.figures", len(res.Figures)),
	)
	infrastructure.RecordDashboardPass(ctx, s.metrics, source, string(res.State), duration, ds.Rows())

	dash := domain.Dashboard{
		State:        res.State,
		Message:      res.Message,
		Sources:      sources,
		Figures:      res.Figures,
		Correlations: res.Correlations,
	}
	if errors.Is(res.Err, dataprocessing.ErrNoDataset) {
		dash.State = domain.StateNoData
	}
	if dash.Figures == nil {
		dash.Figures = []domain.Figure{}
	}
	if dash.Correlations == nil {
		dash.Correlations = []domain.CorrelationRecord{}
	}
	if res.Classification.HasDate {
		dash.DateColumn = res.Classification.DateColumn
	}
	if len(res.Classification.Matches) > 0 {
		dash.Matches = res.Classification.Matches
	}
	if !ds.Empty() {
		dash.Table = Preview(ds, opts.PreviewRows)
	}

	level := slog.LevelInfo
	if res.Err != nil && !errors.Is(res.Err, dataprocessing.ErrNoDataset) {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "dashboard pass completed",
		slog.String("source", source),
		slog.String("state", string(dash.State)),
		slog.String("message", res.Message),
		slog.Int("rows", ds.Rows()),
		slog.Int("figures", len(res.Figures)),
		slog.Int("correlations", len(res.Correlations)),
		slog.Duration("duration", duration))

	return &Pass{Dashboard: dash, Result: res, Merged: ds}
}

// Export merges the files and encodes the merged dataset as csv or xlsx. The xlsx
// workbook also carries the correlation table when the pass is ready.
func (s *DashboardService) Export(ctx context.Context, files []FileInput, format string, opts PassOptions) (*Export, error) {
	if format != ExportCSV && format != ExportXLSX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, format)
	}

	pass, err := s.FromFiles(ctx, SourceUpload, files, opts)
	if err != nil {
		return nil, err
	}
	if pass.Merged.Empty() {
		return nil, apperrors.NewWithDetails(http.StatusConflict, "NO_DASHBOARD_DATA",
			"No ready dashboard to export", ErrNothingToExport.Error())
	}

	var buf bytes.Buffer
	out := &Export{FileName: exportBaseName + "." + format}
	switch format {
	case ExportXLSX:
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = s.xlsx.Write(&buf, pass.Merged, pass.Dashboard.Correlations)
	default:
		out.ContentType = "text/csv; charset=utf-8"
		err = s.csv.WriteDataset(&buf, pass.Merged, true)
	}
	if err != nil {
		return nil, apperrors.NewExportError("could not encode "+format, err)
	}

	out.Data = buf.Bytes()
	s.logger.InfoContext(ctx, "dashboard exported",
		slog.String("format", format),
		slog.Int("rows", pass.Merged.Rows()),
		slog.Int("bytes", len(out.Data)))
	return out, nil
}

// Preview builds the table preview of the first n rows of ds
func Preview(ds *dataset.Dataset, n int) *domain.TablePreview {
	head := ds.Head(n)
	cols := head.Columns()
	columns := make([]domain.TableColumn, len(cols))
	for i, c := range cols {
		columns[i] = domain.TableColumn{Name: c.Name, Kind: c.Kind.String()}
	}
	_, rows := head.Records()
	return &domain.TablePreview{
		Columns:   columns,
		Rows:      rows,
		TotalRows: ds.Rows(),
	}
}

func (s *DashboardService) checkRows(ds *dataset.Dataset) error {
	if s.maxRows <= 0 || ds.Rows() <= s.maxRows {
		return nil
	}
	return apperrors.NewAppError(apperrors.ErrTypeValidation,
		fmt.Sprintf("%s has %d rows, at most %d allowed", ds.Name, ds.Rows(), s.maxRows),
		ErrTooManyRows)
}

// uploadError maps file validator failures onto API errors
func uploadError(name string, err error) error {
	switch {
	case errors.Is(err, validation.ErrNoFiles):
		return apperrors.NewWithDetails(http.StatusBadRequest, "MISSING_PARAMETER",
			"At least one file is required", ErrNoInput.Error())
	case errors.Is(err, validation.ErrTooManyFiles):
		return apperrors.NewWithDetails(http.StatusBadRequest, "TOO_MANY_FILES",
			"Too many files uploaded", err.Error())
	case errors.Is(err, validation.ErrFileTooLarge):
		return apperrors.NewWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("%s exceeds the maximum allowed size", name), err.Error())
	case errors.Is(err, validation.ErrUnsupportedExtension), errors.Is(err, validation.ErrTemporaryFile):
		return apperrors.NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT",
			"Only CSV and XLSX uploads are supported", err.Error())
	default:
		return apperrors.InvalidUploadWithError(name, err)
	}
}
