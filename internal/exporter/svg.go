package exporter

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	apperrors "stockdash/internal/errors"
	"stockdash/internal/dataset"
	"stockdash/pkg/contracts/domain"
)

// seriesColors are assigned to a figure's series in order
var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorAlternateGray,
	chart.ColorGreen,
	chart.ColorRed,
}

// RenderedFigure is the SVG for one figure. Err is set when the chart could
// not be drawn; SVG then holds a placeholder.
type RenderedFigure struct {
	ID    string
	Title string
	SVG   []byte
	Err   error
}

// SVGRenderer draws figure descriptors with go-chart
type SVGRenderer struct {
	width  int
	height int
	logger *slog.Logger
}

// NewSVGRenderer creates a renderer producing width×height charts
func NewSVGRenderer(width, height int, logger *slog.Logger) *SVGRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SVGRenderer{
		width:  width,
		height: height,
		logger: logger.With(slog.String("component", "svg_renderer")),
	}
}

// Render draws one figure. Series go on the left or right y axis by their
// axis ID; undefined points are skipped and bar series are drawn as filled areas.
func (sr *SVGRenderer) Render(fig domain.Figure) ([]byte, error) {
	times, timed := parseTimes(fig.X)

	var series []chart.Series
	for i, s := range fig.Series {
		style := seriesStyle(i, s.Style)
		yAxis := chart.YAxisPrimary
		if s.AxisID == domain.AxisSecondary {
			yAxis = chart.YAxisSecondary
		}

		if timed {
			xs, ys := definedTimePoints(times, s.Values)
			if len(xs) == 0 {
				continue
			}
			if len(xs) == 1 {
				xs = append(xs, xs[0].Add(24*time.Hour))
				ys = append(ys, ys[0])
			}
			series = append(series, chart.TimeSeries{Name: s.Name, Style: style, YAxis: yAxis, XValues: xs, YValues: ys})
			continue
		}

		xs, ys := definedIndexPoints(s.Values)
		if len(xs) == 0 {
			continue
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		series = append(series, chart.ContinuousSeries{Name: s.Name, Style: style, YAxis: yAxis, XValues: xs, YValues: ys})
	}

	if len(series) == 0 {
		return nil, apperrors.NewRenderError(fmt.Sprintf("render %s", fig.ID), fmt.Errorf("no defined points"))
	}

	xAxis := chart.XAxis{Name: fig.XColumn}
	if timed {
		xAxis.ValueFormatter = chart.TimeDateValueFormatter
	}

	ch := chart.Chart{
		Title:      fig.Title,
		Width:      sr.width,
		Height:     sr.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis:      chart.YAxis{Name: axisName(fig, domain.AxisPrimary)},
		YAxisSecondary: chart.YAxis{
			Name: axisName(fig, domain.AxisSecondary),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return nil, apperrors.NewRenderError(fmt.Sprintf("render %s", fig.ID), err)
	}
	return buf.Bytes(), nil
}

// RenderAll draws every figure, substituting a placeholder for any that fail
func (sr *SVGRenderer) RenderAll(figs []domain.Figure) []RenderedFigure {
	out := make([]RenderedFigure, 0, len(figs))
	for _, fig := range figs {
		svg, err := sr.render(fig)
		if err != nil {
			sr.logger.Warn("figure render failed, using placeholder",
				slog.String("figure", fig.ID),
				slog.String("error", err.Error()))
			svg = Placeholder(fig.Title, sr.width, sr.height)
		}
		out = append(out, RenderedFigure{ID: fig.ID, Title: fig.Title, SVG: svg, Err: err})
	}
	return out
}

// render guards against panics inside the chart library on degenerate ranges
func (sr *SVGRenderer) render(fig domain.Figure) (svg []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewRenderError(fmt.Sprintf("render %s", fig.ID), fmt.Errorf("%v", r))
		}
	}()
	return sr.Render(fig)
}

// WriteDir renders every figure into dir as <figure id>.svg and returns the paths
func (sr *SVGRenderer) WriteDir(dir string, figs []domain.Figure) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("create svg directory", err)
	}

	var paths []string
	for _, rf := range sr.RenderAll(figs) {
		path := filepath.Join(dir, rf.ID+".svg")
		if err := os.WriteFile(path, rf.SVG, 0644); err != nil {
			return paths, apperrors.NewStorageError("write "+path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Placeholder is a blank chart-sized SVG carrying the figure title
func Placeholder(title string, width, height int) []byte {
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="100%%" height="100%%" fill="#f5f5f5"/><text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#666">%s: chart unavailable</text></svg>`,
		width, height, html.EscapeString(title)))
}

func seriesStyle(i int, style domain.SeriesStyle) chart.Style {
	color := seriesColors[i%len(seriesColors)]
	st := chart.Style{
		StrokeColor: color,
		StrokeWidth: 2,
	}
	if style == domain.StyleBar {
		st.FillColor = color.WithAlpha(96)
		st.StrokeWidth = 1
	}
	return st
}

func axisName(fig domain.Figure, id domain.AxisID) string {
	axis, ok := fig.Axis(id)
	if !ok {
		return ""
	}
	if axis.Scale == domain.ScaleLog {
		return axis.Title + " (log)"
	}
	return axis.Title
}

// parseTimes reports whether every x label is a date
func parseTimes(labels []string) ([]time.Time, bool) {
	if len(labels) == 0 {
		return nil, false
	}
	out := make([]time.Time, len(labels))
	for i, l := range labels {
		t, ok := dataset.ParseTime(l)
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func definedTimePoints(times []time.Time, values []domain.Number) ([]time.Time, []float64) {
	var xs []time.Time
	var ys []float64
	for i, v := range values {
		if i >= len(times) || !v.Defined() {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, float64(v))
	}
	return xs, ys
}

func definedIndexPoints(values []domain.Number) ([]float64, []float64) {
	var xs, ys []float64
	for i, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, f)
	}
	return xs, ys
}
