package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"stockdash/internal/config"
	"stockdash/internal/infrastructure"
	"stockdash/pkg/contracts"
)

// cli carries the state shared by every subcommand
type cli struct {
	out    io.Writer
	errOut io.Writer

	logLevel string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Build stock comparison dashboards from price files",
		Long:          `dashctl merges one or two price files on their date column, derives the comparison and moving-average figures and the correlation table, and writes them as JSON, SVG or a merged spreadsheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr (debug, info, warn, error)")

	root.AddCommand(newRenderCmd(c))
	root.AddCommand(newVersionCmd(c))
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", c.logLevel)
	}
	c.logger = infrastructure.NewLoggerWithWriter(c.errOut, &slog.HandlerOptions{Level: level})
	return nil
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := contracts.GetVersionInfo()
			fmt.Fprintln(c.out, contracts.GetVersionString())
			fmt.Fprintf(c.out, "api %s, %s %s/%s\n", info.APIVersion, info.GoVersion, info.OS, info.Architecture)
			return nil
		},
	}
}
