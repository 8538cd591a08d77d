package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the columns of the loaded company table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cols, err := newToolService(cfg, logger).Describe(cmd.Context())
			if err != nil {
				return toolError(err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tTYPE\tNULL")
			for _, c := range cols {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Type, c.Null)
			}
			return w.Flush()
		},
	}
}
