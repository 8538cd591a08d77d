package schema

import (
	"fmt"
	"strings"
)

// sourceFinancialColumn is the column name used by the published parquet
// files. The odd casing is part of the published data.
const sourceFinancialColumn = `"financiaL_data"`

const addressType = "STRUCT(address_line VARCHAR, postal_code VARCHAR, city VARCHAR, country VARCHAR)"

const locationType = "STRUCT(county VARCHAR, countryPart VARCHAR, municipality VARCHAR, " +
	"coordinates STRUCT(XCoordinate DOUBLE, YCoordinate DOUBLE, coordinateSystem VARCHAR))"

// MetricsStructSQL returns the STRUCT type of one year's metrics.
func MetricsStructSQL(year string) (string, error) {
	b, ok := BandFor(year)
	if !ok {
		return "", fmt.Errorf("unknown financial year %q", year)
	}
	fields := make([]string, 0, len(catalog))
	for _, m := range yearMetrics(b) {
		fields = append(fields, m.name+" "+b.typeOf(m))
	}
	return "STRUCT(" + strings.Join(fields, ", ") + ")", nil
}

// FinancialStructSQL returns the typed financial_data STRUCT type, one
// member per financial year, each with its band-specific metrics.
func FinancialStructSQL() string {
	members := make([]string, 0, len(years))
	for _, y := range years {
		st, _ := MetricsStructSQL(y)
		members = append(members, QuoteIdentifier(y)+" "+st)
	}
	return "STRUCT(" + strings.Join(members, ", ") + ")"
}

// FinancialJSONStructure returns the json_transform structure matching
// FinancialStructSQL.
func FinancialJSONStructure() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, y := range years {
		if i > 0 {
			sb.WriteByte(',')
		}
		b, _ := BandFor(y)
		sb.WriteString(`"` + y + `":{`)
		for j, m := range yearMetrics(b) {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(`"` + m.name + `":"` + b.typeOf(m) + `"`)
		}
		sb.WriteByte('}')
	}
	sb.WriteByte('}')
	return sb.String()
}

// ColumnTypes returns the physical column declarations of the table in
// column order.
func (m *Model) ColumnTypes() [][2]string {
	categories := "VARCHAR[]"
	financial := FinancialStructSQL()
	if m.variant == Flattened {
		categories = "VARCHAR"
		financial = "VARCHAR"
	}
	return [][2]string{
		{ColumnID, "VARCHAR"},
		{ColumnName, "VARCHAR"},
		{ColumnOrganizationNumber, "VARCHAR"},
		{ColumnType, "VARCHAR"},
		{ColumnPurpose, "VARCHAR"},
		{ColumnEstablishedDate, "DATE"},
		{ColumnFoundationYear, "INTEGER"},
		{ColumnPayrollTax, "BOOLEAN"},
		{ColumnHomepage, "VARCHAR"},
		{ColumnPostalAddress, addressType},
		{ColumnVisitorAddress, addressType},
		{ColumnCategories, categories},
		{ColumnLocation, locationType},
		{ColumnFinancialData, financial},
	}
}

// TableSQL returns a CREATE TABLE statement for an empty table.
func (m *Model) TableSQL() string {
	cols := m.ColumnTypes()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = "    " + c[0] + " " + c[1]
	}
	return "CREATE TABLE " + QuoteIdentifier(m.table) + " (\n" + strings.Join(defs, ",\n") + "\n)"
}

// CreateTableSQL returns a CREATE TABLE AS statement materializing the table
// from a parquet source. The source columns are cleaned on the way in:
// empty dates become NULL, empty category lists become NULL and the location
// JSON is packed into a STRUCT. In the typed variant categories and
// financials are converted from JSON text to their nested types.
func (m *Model) CreateTableSQL(source string) string {
	categories := "nace_categories"
	financial := "CAST(" + sourceFinancialColumn + " AS VARCHAR)"
	if m.variant == Typed {
		categories = `json_transform(nace_categories, '["VARCHAR"]')`
		financial = fmt.Sprintf(`CASE
        WHEN %[1]s IS NULL OR %[1]s = '' OR %[1]s = 'null' THEN NULL
        ELSE json_transform(%[1]s, %[2]s)
    END`, sourceFinancialColumn, QuoteLiteral(FinancialJSONStructure()))
	}

	return fmt.Sprintf(`CREATE TABLE %s AS
SELECT
    company_id,
    name AS company_name,
    organization_number,
    company_type,
    company_purpose,
    CASE
        WHEN established_date IS NULL OR established_date = '' THEN NULL
        ELSE TRY_CAST(established_date AS DATE)
    END AS established_date,
    foundation_year,
    registered_for_payroll_tax,
    homepage,
    postal_address,
    visitor_address,
    CASE
        WHEN nace_categories IS NULL OR nace_categories IN ('', '[]', 'null') THEN NULL
        ELSE %s
    END AS nace_categories,
    CASE
        WHEN location IS NULL OR location IN ('', '{}') THEN NULL
        ELSE STRUCT_PACK(
            county := json_extract_string(location, '$.county'),
            countryPart := json_extract_string(location, '$.countryPart'),
            municipality := json_extract_string(location, '$.municipality'),
            coordinates := CASE
                WHEN json_extract(location, '$.coordinates') IS NULL THEN NULL
                ELSE STRUCT_PACK(
                    XCoordinate := CAST(json_extract(location, '$.coordinates[0].XCoordinate') AS DOUBLE),
                    YCoordinate := CAST(json_extract(location, '$.coordinates[0].YCoordinate') AS DOUBLE),
                    coordinateSystem := json_extract_string(location, '$.coordinates[0].coordinateSystem')
                )
            END
        )
    END AS location,
    %s AS financial_data
FROM read_parquet(%s)`, QuoteIdentifier(m.table), categories, financial, QuoteLiteral(source))
}
