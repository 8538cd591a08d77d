package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ArrowSchema returns the logical Arrow view of the table.
//
// Every metric is exposed as a nullable float64 regardless of the type it was
// declared with in its band, so consumers see one shape for all years. When
// withScore is true a relevance_score column is appended.
func (m *Model) ArrowSchema(withScore bool) *arrow.Schema {
	address := arrow.StructOf(stringFields(addressFields...)...)

	location := arrow.StructOf(
		arrow.Field{Name: "county", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "countryPart", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "municipality", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "coordinates", Type: arrow.StructOf(
			arrow.Field{Name: "XCoordinate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			arrow.Field{Name: "YCoordinate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			arrow.Field{Name: "coordinateSystem", Type: arrow.BinaryTypes.String, Nullable: true},
		), Nullable: true},
	)

	var categories, financial arrow.DataType
	switch m.variant {
	case Flattened:
		categories = arrow.BinaryTypes.String
		financial = arrow.BinaryTypes.String
	default:
		categories = arrow.ListOf(arrow.BinaryTypes.String)
		financial = financialArrowType()
	}

	fields := []arrow.Field{
		{Name: ColumnID, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnName, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnOrganizationNumber, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnType, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnPurpose, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnEstablishedDate, Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: ColumnFoundationYear, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: ColumnPayrollTax, Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: ColumnHomepage, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: ColumnPostalAddress, Type: address, Nullable: true},
		{Name: ColumnVisitorAddress, Type: address, Nullable: true},
		{Name: ColumnCategories, Type: categories, Nullable: true},
		{Name: ColumnLocation, Type: location, Nullable: true},
		{Name: ColumnFinancialData, Type: financial, Nullable: true},
	}
	if withScore {
		fields = append(fields, arrow.Field{Name: ColumnScore, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}

	md := arrow.NewMetadata(
		[]string{"table", "variant"},
		[]string{m.table, string(m.variant)},
	)
	return arrow.NewSchema(fields, &md)
}

// financialArrowType is a struct with one member per year, each holding the
// full metric catalog as float64. Metrics absent from a year read as null.
func financialArrowType() arrow.DataType {
	metricFields := make([]arrow.Field, len(catalog))
	for i, mt := range catalog {
		metricFields[i] = arrow.Field{Name: mt.name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
	}
	yearFields := make([]arrow.Field, len(years))
	for i, y := range years {
		yearFields[i] = arrow.Field{Name: y, Type: arrow.StructOf(metricFields...), Nullable: true}
	}
	return arrow.StructOf(yearFields...)
}

func stringFields(names ...string) []arrow.Field {
	out := make([]arrow.Field, len(names))
	for i, n := range names {
		out[i] = arrow.Field{Name: n, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return out
}
