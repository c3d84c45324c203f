package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "stockdash/internal/errors"
	"stockdash/internal/exporter"
	"stockdash/internal/infrastructure"
	"stockdash/internal/middleware"
	"stockdash/internal/services"
	"stockdash/pkg/contracts"
	"stockdash/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"join": strings.Join,
	// svg marks renderer output as trusted markup
	"svg": func(b []byte) template.HTML { return template.HTML(b) },
	"correlation": func(rec domain.CorrelationRecord) string {
		if !rec.Defined {
			return "n/a"
		}
		return fmt.Sprintf("%.4f", float64(rec.Correlation))
	},
}).ParseFS(templateFS, "templates/dashboard.html"))

// PageData is the view model of the dashboard page
type PageData struct {
	Title     string
	Version   string
	Options   services.PassOptions
	Alert     string
	Dashboard *domain.Dashboard
	Figures   []exporter.RenderedFigure
}

// HTMLHandler serves the server-rendered dashboard page
type HTMLHandler struct {
	service      DashboardServiceInterface
	renderer     *exporter.SVGRenderer
	metrics      *infrastructure.DashboardMetrics
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewHTMLHandler creates a new HTML handler
func NewHTMLHandler(service DashboardServiceInterface, renderer *exporter.SVGRenderer, metrics *infrastructure.DashboardMetrics, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *HTMLHandler {
	return &HTMLHandler{
		service:      service,
		renderer:     renderer,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "html_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the page routes
func (h *HTMLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Post("/dashboard", h.Dashboard)
	return r
}

// Index handles GET / with the empty upload page
func (h *HTMLHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.page())
}

// Dashboard handles POST /dashboard: it builds the dashboard from the uploaded
// files and renders the figures inline
func (h *HTMLHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	page := h.page()

	files, opts, err := ReadUploadForm(r)
	if err != nil {
		h.renderProblem(w, r, page, err)
		return
	}
	page.Options = h.service.Options(opts)

	if len(files) == 0 {
		// nothing uploaded yet: same as the empty page
		h.render(w, r, http.StatusOK, page)
		return
	}

	pass, err := h.service.FromFiles(r.Context(), services.SourceHTML, files, page.Options)
	if err != nil {
		h.renderProblem(w, r, page, err)
		return
	}

	dash := pass.Dashboard
	page.Dashboard = &dash
	switch dash.State {
	case domain.StateReady:
		page.Figures = h.renderer.RenderAll(dash.Figures)
		infrastructure.RecordFiguresRendered(r.Context(), h.metrics, "html", len(page.Figures))
	case domain.StateError:
		page.Alert = dash.Message
	}

	h.render(w, r, http.StatusOK, page)
}

func (h *HTMLHandler) page() PageData {
	return PageData{
		Title:   "Stock Dashboard",
		Version: contracts.GetVersionString(),
		Options: h.service.Options(nil),
	}
}

// renderProblem shows a transport failure as an alert with the problem's status
func (h *HTMLHandler) renderProblem(w http.ResponseWriter, r *http.Request, page PageData, err error) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	h.logger.WarnContext(r.Context(), "dashboard page upload failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))

	page.Alert = problem.Title + ": " + problem.Detail
	h.render(w, r, problem.Status, page)
}

func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, page PageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
