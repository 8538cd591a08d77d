package search

import (
	"math"
	"strings"

	"github.com/hugr-lab/nest/schema"
)

// DefaultLimit caps the number of rows every compiled search returns.
const DefaultLimit = 1000

const (
	minYear = schema.MinFoundationYear
	maxYear = schema.MaxFoundationYear
)

// Options configures a Compiler.
type Options struct {
	// BindParameters emits ? placeholders for scalar comparisons and returns
	// their values in Query.Args. Struct paths, array paths and the ranking
	// query stay inline.
	BindParameters bool

	// RequireFilter rejects requests that produce no condition with
	// ErrEmptyFilterSet.
	RequireFilter bool

	// Limit overrides DefaultLimit when positive.
	Limit int
}

// Query is a compiled search.
type Query struct {
	SQL  string
	Args []any
	// Ranked is true when the query selects and orders by relevance_score.
	Ranked bool
}

// Compiler translates filter requests into DuckDB queries against one model.
// A Compiler holds no mutable state and is safe for concurrent use.
type Compiler struct {
	model *schema.Model
	opts  Options
}

// NewCompiler returns a Compiler for model. A nil opts uses the defaults.
func NewCompiler(model *schema.Model, opts *Options) *Compiler {
	if model == nil {
		model = schema.Default()
	}
	c := &Compiler{model: model}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.Limit <= 0 {
		c.opts.Limit = DefaultLimit
	}
	return c
}

// Compile compiles req against model with default options.
func Compile(req *FilterRequest, model *schema.Model) (*Query, error) {
	return NewCompiler(model, nil).Compile(req)
}

// Model returns the compiler's schema model.
func (c *Compiler) Model() *schema.Model {
	return c.model
}

// Compile validates req and returns the query. Validation runs field by field
// in declaration order and the first failure is returned as a
// *ValidationError.
func (c *Compiler) Compile(req *FilterRequest) (*Query, error) {
	if req == nil {
		req = &FilterRequest{}
	}
	p := &params{bind: c.opts.BindParameters}
	var frags []fragment

	if req.NameSubstring != nil {
		name := strings.TrimSpace(*req.NameSubstring)
		if name != "" {
			if containsUnsafe(name) {
				return nil, &ValidationError{Err: ErrUnsafeCharacter, Field: FieldName, Value: name}
			}
			frags = append(frags, p.fragment(schema.ColumnName+" ILIKE "+containsPattern(p, name)))
		}
	}

	if r := req.FoundationYearRange; r != nil {
		if r.Low > r.High || r.Low < minYear || r.High > maxYear {
			return nil, &ValidationError{Err: ErrInvalidYearRange, Field: FieldFoundationYear, Low: r.Low, High: r.High}
		}
		frags = append(frags, p.fragment(schema.ColumnFoundationYear+" BETWEEN "+p.value(r.Low)+" AND "+p.value(r.High)))
	}

	if req.IndustryCategories != nil {
		var parts []string
		for _, raw := range req.IndustryCategories {
			category := strings.TrimSpace(raw)
			if category == "" {
				continue
			}
			if containsUnsafe(category) {
				return nil, &ValidationError{Err: ErrUnsafeCharacter, Field: FieldCategories, Value: category}
			}
			parts = append(parts, c.categoryCondition(p, category))
		}
		if len(parts) > 0 {
			frags = append(frags, p.fragment(joinOr(parts)))
		}
	}

	var rank string
	if req.PurposeText != nil {
		if purpose := strings.TrimSpace(*req.PurposeText); purpose != "" {
			rank = rankCall(c.model, purpose)
			frags = append(frags, p.fragment(rank+" IS NOT NULL"))
		}
	}

	if req.RevenueRange != nil {
		f, err := c.metricRange(p, FieldRevenue, schema.MetricRevenue, req.RevenueRange)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}

	if req.EmployeeRange != nil {
		f, err := c.metricRange(p, FieldEmployees, schema.MetricEmployees, req.EmployeeRange)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}

	if c.opts.RequireFilter && len(frags) == 0 {
		return nil, &ValidationError{Err: ErrEmptyFilterSet}
	}

	return c.assemble(frags, rank), nil
}

func (c *Compiler) categoryCondition(p *params, category string) string {
	if c.model.Variant() == schema.Flattened {
		return schema.ColumnCategories + " LIKE " + containsPattern(p, category)
	}
	return "list_contains(" + schema.ColumnCategories + ", " + p.value(category) + ")"
}

// metricRange builds the existence check over every financial year: the
// filter matches when any year's value falls within the bounds.
func (c *Compiler) metricRange(p *params, field, metric string, r *NumericRange) (fragment, error) {
	if !validBound(r.Low) || !validBound(r.High) || r.Low > r.High {
		return fragment{}, &ValidationError{Err: ErrInvalidNumericRange, Field: field, Low: r.Low, High: r.High}
	}
	years := c.model.Years()
	parts := make([]string, 0, len(years))
	for _, year := range years {
		parts = append(parts, "TRY_CAST("+metricPath(c.model, year, metric)+" AS DOUBLE) BETWEEN "+
			p.value(r.Low)+" AND "+p.value(r.High))
	}
	return p.fragment("(" + strings.Join(parts, " OR ") + ")"), nil
}

func validBound(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (c *Compiler) assemble(frags []fragment, rank string) *Query {
	var sb strings.Builder
	q := &Query{Ranked: rank != ""}

	sb.WriteString("SELECT *")
	if q.Ranked {
		sb.WriteString(", " + rank + " AS " + schema.ColumnScore)
	}
	sb.WriteString(" FROM " + schema.QuoteIdentifier(c.model.Table()) + " WHERE 1=1")
	for _, f := range frags {
		sb.WriteString(" AND " + f.sql)
		q.Args = append(q.Args, f.args...)
	}
	if q.Ranked {
		sb.WriteString(" ORDER BY " + rank + " DESC, " + schema.ColumnName + " ASC")
	} else {
		sb.WriteString(" ORDER BY " + schema.ColumnName)
	}
	sb.WriteString(" LIMIT " + literal(c.opts.Limit))

	q.SQL = sb.String()
	return q
}

// String returns the query text.
func (q *Query) String() string {
	return q.SQL
}
