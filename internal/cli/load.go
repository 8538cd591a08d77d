package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/nest/dataset"
	"github.com/hugr-lab/nest/engine"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Source  string
	NoIndex bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Materialize the companies table from parquet",
		Long: `Create the companies table from a parquet source, replacing any
existing table, and build the full-text index over company_purpose.

s3:// sources are downloaded with the AWS SDK (default credential chain)
unless dataset.download is false, in which case DuckDB reads them in place.

Example:
  nest load --source ./companies.parquet
  NEST_DATASET_SOURCE=s3://bucket/companies.parquet nest load`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "parquet path or s3:// URI (overrides dataset.source)")
	cmd.Flags().BoolVar(&opts.NoIndex, "no-index", false, "skip building the full-text index")

	return cmd
}

func runLoad(cmd *cobra.Command, opts *LoadOptions) error {
	cfg, logger, err := setup(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if opts.Source != "" {
		cfg.Dataset.Source = opts.Source
	}
	source := cfg.Dataset.Source
	if source == "" {
		return NewExitError(ExitCommandError, "no dataset source: set dataset.source, NEST_DATASET_SOURCE or --source")
	}

	ctx := cmd.Context()
	if dataset.IsRemote(source) && cfg.Dataset.Download {
		logger.Info("Downloading dataset", "source", source, "dir", cfg.CacheDir())
		source, err = dataset.Resolve(ctx, source, cfg.CacheDir())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to download dataset", err)
		}
	}

	ec := cfg.EngineConfig()
	ec.AccessMode = engine.AccessReadWrite
	db, err := engine.Open(ctx, ec)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	model := cfg.Model()
	logger.Info("Loading companies", "source", source, "table", model.Table(), "variant", model.Variant())
	n, err := db.LoadCompanies(ctx, model, source)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load companies", err)
	}

	if cfg.Dataset.SearchIndex && !opts.NoIndex {
		logger.Info("Building search index", "table", model.Table())
		if err := db.CreateSearchIndex(ctx, model); err != nil {
			return WrapExitError(ExitFailure, "failed to build search index", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d companies into %s (%s)\n", n, model.Table(), ec.DatabasePath())
	return nil
}
