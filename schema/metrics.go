package schema

import "strconv"

type metricKind int

const (
	monetary metricKind = iota
	headcount
	ratio
)

type metric struct {
	name string
	kind metricKind
}

// catalog is the 44-metric catalog shared by every financial year.
var catalog = []metric{
	// Income and operating expenses.
	{"revenue", monetary},
	{"other_operating_income", monetary},
	{"total_operating_income", monetary},
	{"cost_of_goods_sold", monetary},
	{"payroll_expenses", monetary},
	{"depreciation", monetary},
	{"other_operating_expenses", monetary},
	{"total_operating_expenses", monetary},
	{"operating_result", monetary},

	// Financial items and result.
	{"financial_income", monetary},
	{"financial_expenses", monetary},
	{"net_financial_items", monetary},
	{"result_before_tax", monetary},
	{"tax_expense", monetary},
	{"annual_result", monetary},
	{"dividends", monetary},

	// Assets.
	{"intangible_assets", monetary},
	{"tangible_fixed_assets", monetary},
	{"financial_fixed_assets", monetary},
	{"total_fixed_assets", monetary},
	{"inventories", monetary},
	{"receivables", monetary},
	{"investments", monetary},
	{"cash_and_bank_deposits", monetary},
	{"total_current_assets", monetary},
	{"total_assets", monetary},

	// Equity and liabilities.
	{"share_capital", monetary},
	{"share_premium", monetary},
	{"other_paid_in_equity", monetary},
	{"retained_earnings", monetary},
	{"total_equity", monetary},
	{"provisions", monetary},
	{"long_term_liabilities", monetary},
	{"short_term_liabilities", monetary},
	{"total_liabilities", monetary},
	{"total_equity_and_liabilities", monetary},

	{"employees", headcount},
	{"ebitda", monetary},
	{"operating_margin", ratio},
	{"profit_margin", ratio},
	{"equity_ratio", ratio},
	{"liquidity_ratio", ratio},
	{"return_on_assets", ratio},
	{"audit_fee", monetary},
}

// Well-known metric names used by the search filters.
const (
	MetricRevenue   = "revenue"
	MetricEmployees = "employees"
	MetricEBITDA    = "ebitda"
)

// Metrics returns the metric names in declaration order.
func Metrics() []string {
	out := make([]string, len(catalog))
	for i, m := range catalog {
		out[i] = m.name
	}
	return out
}

// IsMetric reports whether name is in the catalog.
func IsMetric(name string) bool {
	_, ok := lookupMetric(name)
	return ok
}

func lookupMetric(name string) (metric, bool) {
	for _, m := range catalog {
		if m.name == name {
			return m, true
		}
	}
	return metric{}, false
}

// Band is a run of financial years that share one declared metrics layout.
type Band struct {
	First, Last int

	// Missing lists metrics absent from the band.
	Missing []string

	monetaryType  string
	headcountType string
}

// Label returns "2016-2017" style labels, or the single year.
func (b Band) Label() string {
	if b.First == b.Last {
		return strconv.Itoa(b.First)
	}
	return strconv.Itoa(b.First) + "-" + strconv.Itoa(b.Last)
}

// Contains reports whether year falls in the band.
func (b Band) Contains(year int) bool {
	return year >= b.First && year <= b.Last
}

func (b Band) has(name string) bool {
	for _, m := range b.Missing {
		if m == name {
			return false
		}
	}
	return true
}

func (b Band) typeOf(m metric) string {
	switch m.kind {
	case headcount:
		return b.headcountType
	case ratio:
		return "DOUBLE"
	default:
		return b.monetaryType
	}
}

var bands = []Band{
	{First: 2016, Last: 2017, Missing: []string{MetricEBITDA}, monetaryType: "BIGINT", headcountType: "INTEGER"},
	{First: 2018, Last: 2018, monetaryType: "BIGINT", headcountType: "DOUBLE"},
	{First: 2019, Last: 2020, monetaryType: "DECIMAL(18,2)", headcountType: "INTEGER"},
	{First: 2021, Last: 2024, monetaryType: "BIGINT", headcountType: "INTEGER"},
}

// Bands returns the year bands in ascending order.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// BandFor returns the band containing the year label.
func BandFor(year string) (Band, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Band{}, false
	}
	for _, b := range bands {
		if b.Contains(y) {
			return b, true
		}
	}
	return Band{}, false
}

// MetricType returns the DuckDB type the metric is declared with in the given
// year. The second result is false when the year or metric is unknown, or when
// the metric is absent from that year.
func MetricType(year, name string) (string, bool) {
	b, ok := BandFor(year)
	if !ok {
		return "", false
	}
	m, ok := lookupMetric(name)
	if !ok || !b.has(name) {
		return "", false
	}
	return b.typeOf(m), true
}

// yearMetrics returns the metrics present in year, in catalog order.
func yearMetrics(b Band) []metric {
	out := make([]metric, 0, len(catalog))
	for _, m := range catalog {
		if b.has(m.name) {
			out = append(out, m)
		}
	}
	return out
}
