package tools

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/nest/schema"
)

// Instructions describes the server to tool clients.
const Instructions = "This server provides SQL query tools for company database access."

// Tool names.
const (
	ToolRunRawQuery         = "run_raw_query"
	ToolSearch              = "search"
	ToolCompany             = "company"
	ToolCompanyAnnualReport = "company_annual_report"
)

// Descriptor describes one tool to clients.
type Descriptor struct {
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ReadOnly    bool            `json:"read_only"`
	InputSchema json.RawMessage `json:"input_schema"`
}

const sqlInputSchema = `{
  "type": "object",
  "properties": {
    "sql": {"type": "string", "description": "DuckDB SQL query to execute"}
  },
  "required": ["sql"]
}`

const searchInputSchema = `{
  "type": "object",
  "properties": {
    "name_substring": {"type": "string", "description": "Case-insensitive part of the company name"},
    "foundation_year_range": {"$ref": "#/$defs/year_range"},
    "industry_categories": {"type": "array", "items": {"type": "string"}, "description": "NACE codes, any of which must match"},
    "purpose_text": {"type": "string", "description": "Free-text query ranked against the company purpose"},
    "revenue_range": {"$ref": "#/$defs/numeric_range"},
    "employee_range": {"$ref": "#/$defs/numeric_range"}
  },
  "additionalProperties": false,
  "$defs": {
    "year_range": {
      "type": "object",
      "properties": {"low": {"type": "integer", "minimum": 1800, "maximum": 2024}, "high": {"type": "integer", "minimum": 1800, "maximum": 2024}},
      "required": ["low", "high"]
    },
    "numeric_range": {
      "type": "object",
      "properties": {"low": {"type": "number", "minimum": 0}, "high": {"type": "number", "minimum": 0}},
      "required": ["low", "high"]
    }
  }
}`

// Descriptors lists the tools in a stable order.
func (s *Service) Descriptors() []Descriptor {
	model := s.compiler.Model()
	table := model.Table()
	years := schema.Years()

	return []Descriptor{
		{
			Name:  ToolSearch,
			Title: "Company Search",
			Description: fmt.Sprintf(
				"Search the %s table with structured filters. All filters are optional and combined with AND. "+
					"Revenue and employee ranges match when any year from %s to %s is within bounds. "+
					"A purpose_text query ranks results by relevance. At most %d rows are returned.",
				table, years[0], years[len(years)-1], s.limit),
			ReadOnly:    true,
			InputSchema: json.RawMessage(searchInputSchema),
		},
		{
			Name:  ToolRunRawQuery,
			Title: "Raw SQL Query",
			Description: fmt.Sprintf(
				"Execute a DuckDB SQL query and return the rows as JSON. The %s table has columns %s. "+
					"financial_data is keyed by year, e.g. financial_data['2023']['revenue'].",
				table, strings.Join(columnNames(model), ", ")),
			ReadOnly:    true,
			InputSchema: json.RawMessage(sqlInputSchema),
		},
		{
			Name:        ToolCompany,
			Title:       "Companies",
			Description: "Execute SQL queries against the company database.",
			ReadOnly:    true,
			InputSchema: json.RawMessage(sqlInputSchema),
		},
		{
			Name:        ToolCompanyAnnualReport,
			Title:       "Company Annual Reports",
			Description: "Execute SQL queries against the company annual report database",
			ReadOnly:    true,
			InputSchema: json.RawMessage(sqlInputSchema),
		},
	}
}

// Lookup returns the descriptor of a tool.
func (s *Service) Lookup(name string) (Descriptor, bool) {
	for _, d := range s.Descriptors() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

func columnNames(m *schema.Model) []string {
	cols := m.ColumnTypes()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c[0]
	}
	return out
}
