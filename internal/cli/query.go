package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL query and print the rows as JSON",
		Long: `Run a DuckDB SQL query against the company database, exactly as the
run_raw_query tool does, and print the rows as a JSON array.

Example:
  nest query "SELECT company_name FROM companies LIMIT 5"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out, err := newToolService(cfg, logger).RunRawQuery(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return toolError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
