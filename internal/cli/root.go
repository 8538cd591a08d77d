// Package cli implements the nest command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/nest/internal/config"
	"github.com/hugr-lab/nest/tools"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the nest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nest",
		Short: "nest - company dataset search service",
		Long: `Structured search and read-only SQL over a company dataset stored in DuckDB.

The service exposes the search and run_raw_query tools over Arrow Flight and
HTTP. Use load to materialize the companies table from parquet first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))

	return cmd
}

// setup loads the configuration and installs the default logger.
func setup(opts *RootOptions, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newToolService(cfg *config.Config, logger *slog.Logger) *tools.Service {
	return tools.NewService(tools.Config{
		Engine: cfg.EngineConfig(),
		Model:  cfg.Model(),
		Search: cfg.SearchOptions(),
		Logger: logger,
	})
}

// toolError converts a tool failure into an exit error carrying its payload.
func toolError(err error) error {
	p := tools.NewErrorPayload(err)
	code := ExitFailure
	if tools.IsClientError(err) {
		code = ExitCommandError
	}
	return WrapExitError(code, p.Error, err)
}
