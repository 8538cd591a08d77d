package cli

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/nest/schema"
	"github.com/hugr-lab/nest/search"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Request      string
	Name         string
	FoundedFrom  int
	FoundedTo    int
	Categories   []string
	Purpose      string
	RevenueMin   float64
	RevenueMax   float64
	EmployeesMin float64
	EmployeesMax float64
	Explain      bool
}

// openBound is the upper bound of a range given with its lower bound only.
const openBound = 1e18

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return newSearchCommand(&SearchOptions{RootOptions: rootOpts})
}

func newSearchCommand(opts *SearchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search companies with structured filters",
		Long: `Search the companies table. All filters are optional and combined with AND.
A range given with one bound only is open on the other side.

Example:
  nest search --name acme --founded-from 2000
  nest search --category 62010 --category 62020 --revenue-min 1e6
  nest search --request '{"purpose_text":"fish farming"}' --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Request, "request", "", "filter request as JSON (flags are applied on top)")
	f.StringVar(&opts.Name, "name", "", "case-insensitive part of the company name")
	f.IntVar(&opts.FoundedFrom, "founded-from", schema.MinFoundationYear, "earliest foundation year")
	f.IntVar(&opts.FoundedTo, "founded-to", schema.MaxFoundationYear, "latest foundation year")
	f.StringSliceVar(&opts.Categories, "category", nil, "industry category code (repeatable)")
	f.StringVar(&opts.Purpose, "purpose", "", "free-text query ranked against the company purpose")
	f.Float64Var(&opts.RevenueMin, "revenue-min", 0, "minimum revenue in any year")
	f.Float64Var(&opts.RevenueMax, "revenue-max", openBound, "maximum revenue in any year")
	f.Float64Var(&opts.EmployeesMin, "employees-min", 0, "minimum employees in any year")
	f.Float64Var(&opts.EmployeesMax, "employees-max", openBound, "maximum employees in any year")
	f.BoolVar(&opts.Explain, "explain", false, "print the compiled SQL instead of running it")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions) error {
	req, err := buildRequest(cmd, opts)
	if err != nil {
		return err
	}
	cfg, logger, err := setup(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc := newToolService(cfg, logger)

	if opts.Explain {
		q, err := svc.Compile(req)
		if err != nil {
			return toolError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), q.SQL)
		for i, arg := range q.Args {
			fmt.Fprintf(cmd.OutOrStdout(), "-- arg %d: %v\n", i+1, arg)
		}
		return nil
	}

	out, err := svc.Search(cmd.Context(), req)
	if err != nil {
		return toolError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// buildRequest merges the --request JSON with the filter flags that were set.
func buildRequest(cmd *cobra.Command, opts *SearchOptions) (*search.FilterRequest, error) {
	req := &search.FilterRequest{}
	if opts.Request != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(opts.Request)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --request", err)
		}
	}

	f := cmd.Flags()
	if f.Changed("name") {
		req.NameSubstring = search.StringPtr(opts.Name)
	}
	if f.Changed("founded-from") || f.Changed("founded-to") {
		req.FoundationYearRange = &search.YearRange{Low: opts.FoundedFrom, High: opts.FoundedTo}
	}
	if f.Changed("category") {
		req.IndustryCategories = opts.Categories
	}
	if f.Changed("purpose") {
		req.PurposeText = search.StringPtr(opts.Purpose)
	}
	if f.Changed("revenue-min") || f.Changed("revenue-max") {
		req.RevenueRange = &search.NumericRange{Low: opts.RevenueMin, High: opts.RevenueMax}
	}
	if f.Changed("employees-min") || f.Changed("employees-max") {
		req.EmployeeRange = &search.NumericRange{Low: opts.EmployeesMin, High: opts.EmployeesMax}
	}
	return req, nil
}
