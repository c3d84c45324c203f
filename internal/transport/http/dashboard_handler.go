package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "stockdash/internal/errors"
	"stockdash/internal/middleware"
	"stockdash/internal/services"
	api "stockdash/pkg/contracts/api/v1"
)

// multipartMemory is the part of a multipart form kept in memory before spilling to disk
const multipartMemory = 8 << 20

// DashboardServiceInterface defines the dashboard operations used by the handlers
type DashboardServiceInterface interface {
	Options(o *api.DashboardOptions) services.PassOptions
	FromFiles(ctx context.Context, source string, files []services.FileInput, opts services.PassOptions) (*services.Pass, error)
	FromDataURLs(ctx context.Context, files []api.UploadFile, opts services.PassOptions) (*services.Pass, error)
	FromSnapshot(ctx context.Context, source string, req api.SnapshotRequest, opts services.PassOptions) (*services.Pass, error)
	Export(ctx context.Context, files []services.FileInput, format string, opts services.PassOptions) (*services.Export, error)
}

// DashboardHandler serves the JSON dashboard API
type DashboardHandler struct {
	service      DashboardServiceInterface
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/", h.Upload)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/upload", h.UploadDataURLs)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/snapshot", h.Snapshot)
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/export", h.Export)

	return r
}

// Upload handles POST /api/dashboard with one or two multipart files
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	files, opts, ok := h.readMultipart(w, r)
	if !ok {
		return
	}

	pass, err := h.service.FromFiles(r.Context(), services.SourceUpload, files, h.service.Options(opts))
	if err != nil {
		h.fail(w, r, "dashboard upload failed", err)
		return
	}
	h.respond(w, r, pass)
}

// UploadDataURLs handles POST /api/dashboard/upload with data URL files
func (h *DashboardHandler) UploadDataURLs(w http.ResponseWriter, r *http.Request) {
	var req api.UploadRequest
	if !h.validation.DecodeJSON(w, r, &req) {
		return
	}

	pass, err := h.service.FromDataURLs(r.Context(), req.Files, h.service.Options(req.Options))
	if err != nil {
		h.fail(w, r, "dashboard data URL upload failed", err)
		return
	}
	h.respond(w, r, pass)
}

// Snapshot handles POST /api/dashboard/snapshot with an edited table
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req api.SnapshotRequest
	if !h.validation.DecodeJSON(w, r, &req) {
		return
	}

	pass, err := h.service.FromSnapshot(r.Context(), services.SourceSnapshot, req, h.service.Options(req.Options))
	if err != nil {
		h.fail(w, r, "dashboard snapshot failed", err)
		return
	}
	h.respond(w, r, pass)
}

// Export handles POST /api/dashboard/export?format=csv|xlsx and returns the merged dataset
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", []string{services.ExportCSV, services.ExportXLSX}, services.ExportCSV)
	if !ok {
		return
	}

	files, opts, ok := h.readMultipart(w, r)
	if !ok {
		return
	}

	out, err := h.service.Export(r.Context(), files, format, h.service.Options(opts))
	if err != nil {
		h.fail(w, r, "dashboard export failed", err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
	}
}

func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, pass *services.Pass) {
	h.logger.InfoContext(r.Context(), "dashboard served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("state", string(pass.Dashboard.State)),
		slog.Int("figures", len(pass.Dashboard.Figures)))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   pass.Dashboard,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("error", err.Error()))
	h.errorHandler.HandleError(w, r, err)
}

// readMultipart parses the upload form. On failure the problem response has
// already been written and ok is false.
func (h *DashboardHandler) readMultipart(w http.ResponseWriter, r *http.Request) ([]services.FileInput, *api.DashboardOptions, bool) {
	files, opts, err := ReadUploadForm(r)
	if err != nil {
		h.fail(w, r, "invalid upload form", err)
		return nil, nil, false
	}
	if opts != nil {
		if err := h.validation.ValidateStruct(opts); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return nil, nil, false
		}
	}
	return files, opts, true
}

// ReadUploadForm reads the files and dashboard options of a multipart upload.
// Files under the "files" field come first, then any other file fields in name order.
func ReadUploadForm(r *http.Request) ([]services.FileInput, *api.DashboardOptions, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, err
		}
		return nil, nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		if field != "files" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		headers = append(headers, r.MultipartForm.File[field]...)
	}

	files := make([]services.FileInput, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, nil, apierrors.InvalidUploadWithError(fh.Filename, err)
		}
		files = append(files, services.FileInput{Name: fh.Filename, Data: data})
	}

	opts, err := formOptions(r)
	if err != nil {
		return nil, nil, err
	}
	return files, opts, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formOptions reads optional dashboard overrides from form values
func formOptions(r *http.Request) (*api.DashboardOptions, error) {
	var opts api.DashboardOptions
	set := false

	for field, dst := range map[string]**bool{
		"volume_as_bar":    &opts.VolumeAsBar,
		"volume_log_scale": &opts.VolumeLogScale,
	} {
		raw := r.FormValue(field)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apierrors.ErrValidation(field, field+" must be a boolean")
		}
		*dst = &v
		set = true
	}

	if raw := r.FormValue("preview_rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apierrors.ErrValidation("preview_rows", "preview_rows must be an integer")
		}
		opts.PreviewRows = &n
		set = true
	}

	if !set {
		return nil, nil
	}
	return &opts, nil
}
