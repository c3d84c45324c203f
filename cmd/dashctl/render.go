package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockdash/internal/exporter"
	"stockdash/internal/services"
	"stockdash/internal/validation"
	"stockdash/pkg/contracts/domain"
)

// errNotReady is returned when the files load but no dashboard can be derived
var errNotReady = errors.New("dashboard not ready")

type renderOptions struct {
	jsonPath string
	svgDir   string
	merged   string

	volumeAsBar    bool
	volumeLogScale bool
}

func newRenderCmd(c *cli) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <file> [file]",
		Short: "Build the dashboard for one or two price files",
		Example: `  dashctl render S&P500.csv TSLA.csv
  dashctl render prices.xlsx --json dashboard.json --svg-dir charts
  dashctl render a.csv b.csv --merged merged.xlsx`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("volume-bar") {
				opts.volumeAsBar = c.cfg.Dashboard.VolumeAsBar
			}
			if !flags.Changed("volume-log") {
				opts.volumeLogScale = c.cfg.Dashboard.VolumeLogScale
			}
			return c.render(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.jsonPath, "json", "", "write the dashboard as JSON to this file (- for stdout)")
	f.StringVar(&opts.svgDir, "svg-dir", "", "write one SVG per figure into this directory")
	f.StringVar(&opts.merged, "merged", "", "write the merged dataset to this .csv or .xlsx file")
	f.BoolVar(&opts.volumeAsBar, "volume-bar", false, "draw the volume comparison as bars")
	f.BoolVar(&opts.volumeLogScale, "volume-log", false, "use a log scale for the volume axis")
	return cmd
}

func (c *cli) render(cmd *cobra.Command, paths []string, opts renderOptions) error {
	ctx := cmd.Context()

	if opts.merged != "" {
		switch strings.ToLower(filepath.Ext(opts.merged)) {
		case ".csv", ".xlsx":
		default:
			return fmt.Errorf("--merged must end in .csv or .xlsx, got %q", opts.merged)
		}
	}

	validator := validation.NewFileValidator(c.logger, c.cfg.Upload.MaxBytes, c.cfg.Upload.MaxFiles)
	if err := validator.ValidateCount(len(paths)); err != nil {
		return err
	}

	files := make([]services.FileInput, 0, len(paths))
	for _, path := range paths {
		if err := validator.ValidateFile(path); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, services.FileInput{Name: filepath.Base(path), Data: data})
	}

	svc := services.NewDashboardService(c.cfg, nil, nil, c.logger)
	passOpts := svc.Options(nil)
	passOpts.Figures.VolumeAsBar = opts.volumeAsBar
	passOpts.Figures.VolumeLogScale = opts.volumeLogScale

	pass, err := svc.FromFiles(ctx, services.SourceCLI, files, passOpts)
	if err != nil {
		return err
	}
	dash := pass.Dashboard

	printSummary(c.out, dash)

	if opts.jsonPath != "" {
		if err := writeJSON(c.out, opts.jsonPath, dash); err != nil {
			return err
		}
	}

	if opts.merged != "" && !pass.Merged.Empty() {
		if err := c.writeMerged(opts.merged, pass); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "merged dataset written to %s\n", opts.merged)
	}

	if dash.State != domain.StateReady {
		return fmt.Errorf("%w: %s", errNotReady, dash.Message)
	}

	if opts.svgDir != "" {
		if err := validator.ValidateOutputDirectory(opts.svgDir); err != nil {
			return err
		}
		renderer := exporter.NewSVGRenderer(c.cfg.Dashboard.ChartWidth, c.cfg.Dashboard.ChartHeight, c.logger)
		written, err := renderer.WriteDir(opts.svgDir, dash.Figures)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintf(c.out, "figure written to %s\n", p)
		}
	}
	return nil
}

func (c *cli) writeMerged(path string, pass *services.Pass) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return exporter.NewXLSXWriter(c.logger).WriteFile(path, pass.Merged, pass.Dashboard.Correlations)
	}
	return exporter.NewCSVWriter(c.logger).WriteFile(path, pass.Merged)
}

func printSummary(out io.Writer, dash domain.Dashboard) {
	fmt.Fprintf(out, "sources: %s\n", strings.Join(dash.Sources, ", "))
	if dash.Table != nil {
		fmt.Fprintf(out, "rows: %d, columns: %d\n", dash.Table.TotalRows, len(dash.Table.Columns))
	}
	fmt.Fprintf(out, "state: %s\n", dash.State)
	if dash.Message != "" {
		fmt.Fprintf(out, "message: %s\n", dash.Message)
	}
	if dash.State != domain.StateReady {
		return
	}

	fmt.Fprintf(out, "date column: %s\n", dash.DateColumn)
	for _, fig := range dash.Figures {
		fmt.Fprintf(out, "figure %s: %s\n", fig.ID, fig.Title)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCOLUMNS\tCORRELATION")
	for _, rec := range dash.Correlations {
		corr := "n/a"
		if rec.Defined {
			corr = fmt.Sprintf("%.4f", float64(rec.Correlation))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Metric, strings.Join(rec.Columns, " vs "), corr)
	}
	tw.Flush()
}

func writeJSON(stdout io.Writer, path string, dash domain.Dashboard) error {
	data, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
