// Package schema describes the logical companies table.
//
// The dataset has been published in two physical layouts: a typed one where
// industry categories are a VARCHAR[] column and per-year financials are a
// nested STRUCT, and a flattened one where both are JSON text. A Model carries
// the active layout plus the static catalog of years and metrics, so query
// builders can emit the right access pattern without inspecting the engine.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant selects the physical layout of the companies table.
type Variant string

const (
	// Typed stores nace_categories as VARCHAR[] and financial_data as a
	// STRUCT keyed by year.
	Typed Variant = "typed"
	// Flattened stores nace_categories and financial_data as JSON text.
	Flattened Variant = "flattened"
)

// ParseVariant converts a configuration value into a Variant.
// An empty string selects Typed.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", Typed:
		return Typed, nil
	case Flattened:
		return Flattened, nil
	default:
		return "", fmt.Errorf("unknown schema variant %q (want %q or %q)", s, Typed, Flattened)
	}
}

// DefaultTable is the table name used when none is configured.
const DefaultTable = "companies"

// Column names of the companies table.
const (
	ColumnID                 = "company_id"
	ColumnName               = "company_name"
	ColumnOrganizationNumber = "organization_number"
	ColumnType               = "company_type"
	ColumnPurpose            = "company_purpose"
	ColumnEstablishedDate    = "established_date"
	ColumnFoundationYear     = "foundation_year"
	ColumnPayrollTax         = "registered_for_payroll_tax"
	ColumnHomepage           = "homepage"
	ColumnPostalAddress      = "postal_address"
	ColumnVisitorAddress     = "visitor_address"
	ColumnCategories         = "nace_categories"
	ColumnLocation           = "location"
	ColumnFinancialData      = "financial_data"

	// ColumnScore is the computed relevance column added by ranked searches.
	ColumnScore = "relevance_score"
)

// Fields of the address structs.
var addressFields = []string{"address_line", "postal_code", "city", "country"}

// Year bounds of the financial data and of foundation years.
const (
	FirstYear = 2016
	LastYear  = 2024

	MinFoundationYear = 1800
	MaxFoundationYear = 2024
)

var years = func() []string {
	out := make([]string, 0, LastYear-FirstYear+1)
	for y := FirstYear; y <= LastYear; y++ {
		out = append(out, strconv.Itoa(y))
	}
	return out
}()

// Years returns the fixed ascending list of financial year labels.
func Years() []string {
	out := make([]string, len(years))
	copy(out, years)
	return out
}

// Model is an immutable description of one configured companies table.
// It is safe for concurrent use.
type Model struct {
	variant Variant
	table   string
}

// New returns a Model for the given layout and table name.
// An empty table name selects DefaultTable.
func New(variant Variant, table string) *Model {
	if variant == "" {
		variant = Typed
	}
	if table == "" {
		table = DefaultTable
	}
	return &Model{variant: variant, table: table}
}

// Default returns the typed model over DefaultTable.
func Default() *Model {
	return New(Typed, DefaultTable)
}

// Variant returns the physical layout.
func (m *Model) Variant() Variant {
	return m.variant
}

// Table returns the table name.
func (m *Model) Table() string {
	return m.table
}

// Years returns the financial year labels. Same as the package-level Years.
func (m *Model) Years() []string {
	return Years()
}

// Metrics returns the metric catalog in declaration order.
func (m *Model) Metrics() []string {
	return Metrics()
}

// RankFunction returns the full-text relevance function created by the fts
// extension for this table.
func (m *Model) RankFunction() string {
	return "fts_main_" + m.table + ".match_bm25"
}
