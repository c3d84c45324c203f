// Package exporter writes dashboard results out of the process.
//
// CSVWriter writes the merged dataset as CSV with an optional UTF-8 BOM so
// Excel opens it with the right encoding. XLSXWriter writes a workbook with a
// Data sheet and a Correlations sheet. SVGRenderer draws figure descriptors
// with go-chart for the HTML page and the CLI:
//
//	renderer := exporter.NewSVGRenderer(960, 420, logger)
//	for _, fig := range renderer.RenderAll(result.Figures) {
//	    os.WriteFile(fig.ID+".svg", fig.SVG, 0644)
//	}
//
// A figure that cannot be drawn is replaced by a placeholder SVG; the error is
// kept on RenderedFigure.Err.
package exporter
