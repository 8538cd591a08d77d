package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hugr-lab/nest/schema"
)

// unsafeSequences are rejected in name and category input before any
// escaping takes place.
var unsafeSequences = []string{"'", `"`, ";", "--", "/*", "*/"}

func containsUnsafe(s string) bool {
	for _, seq := range unsafeSequences {
		if strings.Contains(s, seq) {
			return true
		}
	}
	return false
}

// fragment is one filter's contribution to the WHERE clause.
type fragment struct {
	sql  string
	args []any
}

// params renders values either as inline literals or as ? placeholders,
// collecting bound arguments for the fragment being built.
type params struct {
	bind bool
	args []any
}

func (p *params) value(v any) string {
	if p.bind {
		p.args = append(p.args, v)
		return "?"
	}
	return literal(v)
}

// fragment closes the current fragment and takes its arguments.
func (p *params) fragment(sql string) fragment {
	f := fragment{sql: sql, args: p.args}
	p.args = nil
	return f
}

func literal(v any) string {
	switch v := v.(type) {
	case string:
		return schema.QuoteLiteral(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return schema.QuoteLiteral(fmt.Sprint(v))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern renders a LIKE pattern matching s as a literal substring.
// LIKE wildcards in s are escaped, and the ESCAPE clause is only emitted when
// there was something to escape.
func containsPattern(p *params, s string) string {
	escaped := likeEscaper.Replace(s)
	pattern := p.value("%" + escaped + "%")
	if escaped != s {
		pattern += ` ESCAPE '\'`
	}
	return pattern
}

// joinOr joins conditions with OR, parenthesizing when there is more than one.
func joinOr(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// metricPath renders the access path of one (year, metric) pair for the
// model's physical layout. Both parts come from the static catalog.
func metricPath(m *schema.Model, year, metric string) string {
	if m.Variant() == schema.Flattened {
		return fmt.Sprintf("json_extract_string(%s, %s)",
			schema.ColumnFinancialData, schema.QuoteLiteral(`$."`+year+`".`+metric))
	}
	return fmt.Sprintf("%s[%s][%s]",
		schema.ColumnFinancialData, schema.QuoteLiteral(year), schema.QuoteLiteral(metric))
}

// rankCall renders the relevance function call for a purpose query. The query
// is always inlined as an escaped literal.
func rankCall(m *schema.Model, query string) string {
	return fmt.Sprintf("%s(%s, %s)", m.RankFunction(), schema.ColumnID, schema.QuoteLiteral(query))
}
