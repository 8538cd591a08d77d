package schema

import (
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYears(t *testing.T) {
	got := Years()
	assert.Equal(t, []string{"2016", "2017", "2018", "2019", "2020", "2021", "2022", "2023", "2024"}, got)

	// Callers cannot mutate the catalog.
	got[0] = "1999"
	assert.Equal(t, "2016", Years()[0])
}

func TestMetricsCatalog(t *testing.T) {
	metrics := Metrics()
	require.Len(t, metrics, 44)

	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		assert.False(t, seen[m], "duplicate metric %s", m)
		seen[m] = true
	}
	assert.True(t, IsMetric(MetricRevenue))
	assert.True(t, IsMetric(MetricEmployees))
	assert.False(t, IsMetric("market_cap"))
}

func TestBands(t *testing.T) {
	labels := make([]string, 0)
	for _, b := range Bands() {
		labels = append(labels, b.Label())
	}
	assert.Equal(t, []string{"2016-2017", "2018", "2019-2020", "2021-2024"}, labels)

	// Every year belongs to exactly one band.
	for _, y := range Years() {
		year, err := strconv.Atoi(y)
		require.NoError(t, err)
		n := 0
		for _, b := range Bands() {
			if b.Contains(year) {
				n++
			}
		}
		assert.Equal(t, 1, n, "year %s", y)
		_, ok := BandFor(y)
		assert.True(t, ok)
	}
}

func TestMetricType(t *testing.T) {
	tests := []struct {
		year, metric string
		want         string
		ok           bool
	}{
		{"2016", "revenue", "BIGINT", true},
		{"2016", "ebitda", "", false},
		{"2017", "ebitda", "", false},
		{"2018", "ebitda", "BIGINT", true},
		{"2018", "employees", "DOUBLE", true},
		{"2017", "employees", "INTEGER", true},
		{"2019", "revenue", "DECIMAL(18,2)", true},
		{"2020", "total_assets", "DECIMAL(18,2)", true},
		{"2020", "employees", "INTEGER", true},
		{"2024", "revenue", "BIGINT", true},
		{"2024", "equity_ratio", "DOUBLE", true},
		{"2015", "revenue", "", false},
		{"2024", "unknown", "", false},
	}
	for _, tt := range tests {
		got, ok := MetricType(tt.year, tt.metric)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.year, tt.metric)
		assert.Equal(t, tt.want, got, "%s/%s", tt.year, tt.metric)
	}
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, Typed, v)

	v, err = ParseVariant(" Flattened ")
	require.NoError(t, err)
	assert.Equal(t, Flattened, v)

	_, err = ParseVariant("columnar")
	assert.Error(t, err)
}

func TestModelDefaults(t *testing.T) {
	m := New("", "")
	assert.Equal(t, Typed, m.Variant())
	assert.Equal(t, DefaultTable, m.Table())
	assert.Equal(t, "fts_main_companies.match_bm25", m.RankFunction())
}

func TestFinancialStructSQL(t *testing.T) {
	sql := FinancialStructSQL()
	assert.True(t, strings.HasPrefix(sql, `STRUCT("2016" STRUCT(revenue BIGINT, `))
	for _, y := range Years() {
		assert.Contains(t, sql, `"`+y+`" STRUCT(`)
	}

	st, err := MetricsStructSQL("2016")
	require.NoError(t, err)
	assert.NotContains(t, st, "ebitda")

	st, err = MetricsStructSQL("2019")
	require.NoError(t, err)
	assert.Contains(t, st, "revenue DECIMAL(18,2)")
	assert.Contains(t, st, "ebitda DECIMAL(18,2)")

	_, err = MetricsStructSQL("1999")
	assert.Error(t, err)
}

func TestFinancialJSONStructure(t *testing.T) {
	s := FinancialJSONStructure()
	assert.True(t, strings.HasPrefix(s, `{"2016":{"revenue":"BIGINT",`))
	assert.Contains(t, s, `"2018":{"revenue":"BIGINT"`)
	assert.Contains(t, s, `"employees":"DOUBLE"`)
	assert.True(t, strings.HasSuffix(s, `"audit_fee":"BIGINT"}}`))
}

func TestCreateTableSQL(t *testing.T) {
	typed := New(Typed, "companies").CreateTableSQL("data/o'hara.parquet")
	assert.Contains(t, typed, "CREATE TABLE companies AS")
	assert.Contains(t, typed, "read_parquet('data/o''hara.parquet')")
	assert.Contains(t, typed, `json_transform(nace_categories, '["VARCHAR"]')`)
	assert.Contains(t, typed, "TRY_CAST(established_date AS DATE)")

	flat := New(Flattened, "companies").CreateTableSQL("x.parquet")
	assert.NotContains(t, flat, "json_transform")
	assert.Contains(t, flat, `CAST("financiaL_data" AS VARCHAR) AS financial_data`)
}

func TestTableSQL(t *testing.T) {
	sql := New(Flattened, "firms").TableSQL()
	assert.True(t, strings.HasPrefix(sql, "CREATE TABLE firms (\n    company_id VARCHAR,"))
	assert.Contains(t, sql, "nace_categories VARCHAR,")
	assert.True(t, strings.HasSuffix(sql, "financial_data VARCHAR\n)"))
}

func TestArrowSchema(t *testing.T) {
	typed := New(Typed, "").ArrowSchema(false)
	require.Equal(t, 14, typed.NumFields())

	f, ok := typed.FieldsByName(ColumnCategories)
	require.True(t, ok)
	assert.Equal(t, arrow.LIST, f[0].Type.ID())

	f, ok = typed.FieldsByName(ColumnFinancialData)
	require.True(t, ok)
	fin := f[0].Type.(*arrow.StructType)
	assert.Equal(t, 9, fin.NumFields())
	year := fin.Field(0).Type.(*arrow.StructType)
	assert.Equal(t, 44, year.NumFields())
	assert.Equal(t, arrow.FLOAT64, year.Field(0).Type.ID())

	ranked := New(Flattened, "").ArrowSchema(true)
	require.Equal(t, 15, ranked.NumFields())
	assert.Equal(t, ColumnScore, ranked.Field(14).Name)
	f, _ = ranked.FieldsByName(ColumnFinancialData)
	assert.Equal(t, arrow.STRING, f[0].Type.ID())
}

func TestIsPlainIdentifier(t *testing.T) {
	for _, name := range []string{"companies", "_firms", "firms_2024"} {
		assert.True(t, IsPlainIdentifier(name), name)
	}
	for _, name := range []string{"", "my-companies", "2024firms", "select", "Offset", "a b", "firms;"} {
		assert.False(t, IsPlainIdentifier(name), name)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "companies", QuoteIdentifier("companies"))
	assert.Equal(t, `"2016"`, QuoteIdentifier("2016"))
	assert.Equal(t, `"order"`, QuoteIdentifier("order"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))
	assert.Equal(t, `'it''s'`, QuoteLiteral("it's"))
}
