// internal/rules/operators.go
package rules

import "github.com/solatis/rulebook/internal/types"

/*
 * Operator comparison logic.
 *
 * Comparators from the rule model map onto three operators:
 *   - is / not present -> is_null (measurement missing or null)
 *   - >=               -> gte
 *   - <                -> lt
 *
 * Values should already be coerced via Coerce() before reaching Compare().
 * Numeric comparison handles float64/int/int64 mixing for JSON compatibility.
 */

// Operator is the evaluation form of a Comparator.
type Operator int

const (
	OpUnspecified Operator = iota
	OpIsNull
	OpGte
	OpLt
)

// OperatorFor maps a comparator to its operator.
// Returns false for comparators outside the known set.
func OperatorFor(c types.Comparator) (Operator, bool) {
	switch {
	case c.IsAbsence():
		return OpIsNull, true
	case c == types.ComparatorGTE:
		return OpGte, true
	case c == types.ComparatorLT:
		return OpLt, true
	default:
		return OpUnspecified, false
	}
}

// Compare applies the operator to compare value against target.
func Compare(op Operator, value, target any) bool {
	switch op {
	case OpIsNull:
		return value == nil
	case OpGte:
		c, ok := compareNumeric(value, target)
		return ok && c >= 0
	case OpLt:
		c, ok := compareNumeric(value, target)
		return ok && c < 0
	default:
		return false
	}
}

// compareNumeric performs three-way numeric comparison (-1/0/1).
// ok is false for incomparable types.
func compareNumeric(a, b any) (int, bool) {
	na, nb, ok := asNumbers(a, b)
	if !ok {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// asNumbers attempts to convert both values to float64 for numeric comparison.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts value to float64 if it's a numeric type.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
