package search

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	Low  int `json:"low" msgpack:"low"`
	High int `json:"high" msgpack:"high"`
}

// NumericRange is an inclusive range of non-negative values.
type NumericRange struct {
	Low  float64 `json:"low" msgpack:"low"`
	High float64 `json:"high" msgpack:"high"`
}

// FilterRequest is the set of search constraints submitted by a caller.
//
// Every field is optional and nil means no constraint. A non-nil string that
// is blank after trimming is skipped, not rejected.
type FilterRequest struct {
	NameSubstring       *string       `json:"name_substring,omitempty" msgpack:"name_substring,omitempty"`
	FoundationYearRange *YearRange    `json:"foundation_year_range,omitempty" msgpack:"foundation_year_range,omitempty"`
	IndustryCategories  []string      `json:"industry_categories,omitempty" msgpack:"industry_categories,omitempty"`
	PurposeText         *string       `json:"purpose_text,omitempty" msgpack:"purpose_text,omitempty"`
	RevenueRange        *NumericRange `json:"revenue_range,omitempty" msgpack:"revenue_range,omitempty"`
	EmployeeRange       *NumericRange `json:"employee_range,omitempty" msgpack:"employee_range,omitempty"`
}

// Field names used in validation errors.
const (
	FieldName           = "name_substring"
	FieldFoundationYear = "foundation_year_range"
	FieldCategories     = "industry_categories"
	FieldPurpose        = "purpose_text"
	FieldRevenue        = "revenue_range"
	FieldEmployees      = "employee_range"
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
