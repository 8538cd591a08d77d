package search

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidYearRange is returned when a year range is inverted or
	// outside the dataset's calendar.
	ErrInvalidYearRange = errors.New("invalid year range")

	// ErrInvalidNumericRange is returned when a numeric range is inverted,
	// negative or not finite.
	ErrInvalidNumericRange = errors.New("invalid numeric range")

	// ErrUnsafeCharacter is returned when a name or category contains a
	// quote, semicolon or comment marker.
	ErrUnsafeCharacter = errors.New("unsafe character in input")

	// ErrEmptyFilterSet is returned when filters are required and none
	// produced a condition.
	ErrEmptyFilterSet = errors.New("empty filter set")
)

// Error kind names reported to callers.
const (
	KindInvalidYearRange    = "InvalidYearRange"
	KindInvalidNumericRange = "InvalidNumericRange"
	KindUnsafeCharacter     = "UnsafeCharacterInInput"
	KindEmptyFilterSet      = "EmptyFilterSet"
)

// ValidationError describes a rejected filter request.
// Use errors.Is with the Err* sentinels to test the kind.
type ValidationError struct {
	Err   error
	Field string
	// Value is the offending text for UnsafeCharacterInInput.
	Value string
	// Low and High are the range bounds for the range kinds.
	Low, High any
}

// Kind returns the error kind name.
func (e *ValidationError) Kind() string {
	switch e.Err {
	case ErrInvalidYearRange:
		return KindInvalidYearRange
	case ErrInvalidNumericRange:
		return KindInvalidNumericRange
	case ErrUnsafeCharacter:
		return KindUnsafeCharacter
	case ErrEmptyFilterSet:
		return KindEmptyFilterSet
	}
	return "ValidationError"
}

func (e *ValidationError) Error() string {
	switch e.Err {
	case ErrInvalidYearRange:
		return fmt.Sprintf("%s for %s: low=%v high=%v (years must be within %d-%d and low <= high)",
			e.Err, e.Field, e.Low, e.High, minYear, maxYear)
	case ErrInvalidNumericRange:
		return fmt.Sprintf("%s for %s: low=%s high=%s (bounds must be finite, non-negative and low <= high)",
			e.Err, e.Field, formatBound(e.Low), formatBound(e.High))
	case ErrUnsafeCharacter:
		return fmt.Sprintf("%s for %s: %q", e.Err, e.Field, e.Value)
	case ErrEmptyFilterSet:
		return fmt.Sprintf("%s: at least one filter is required", e.Err)
	}
	return fmt.Sprintf("%v for %s", e.Err, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func formatBound(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
