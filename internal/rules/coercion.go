// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/rulebook/internal/types"
)

/*
 * Numeric coercion.
 *
 * The only validation the editor performs is coercing numeric fields. Two
 * call sites share this code:
 *   - decoding ids and thresholds from imported or dispatched JSON
 *   - reading measured values during evaluation
 *
 * Null values vs coercion failures are reported differently: nil input
 * yields IsNull so the caller can treat it as "measurement absent", while
 * values that cannot become numbers return ErrCoercionFailed.
 *
 * Type modes:
 *   - NUMERIC: Strict - numbers and numeric strings, reject booleans
 *   - ANY: Lenient - preserve original value
 */

// FieldType selects the coercion mode.
type FieldType int

const (
	FieldTypeUnspecified FieldType = iota
	FieldTypeNumeric
	FieldTypeAny
)

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // coerced value (valid only if !IsNull)
	IsNull bool // true if input was nil/null
}

// Coerce attempts to convert value to the expected field type.
// Returns CoercionResult with IsNull=true for nil input.
// Returns ErrCoercionFailed for impossible coercions.
func Coerce(value any, fieldType FieldType) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}

	switch fieldType {
	case FieldTypeNumeric:
		return coerceNumeric(value)
	case FieldTypeAny, FieldTypeUnspecified:
		return CoercionResult{Value: value}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// coerceNumeric converts value to float64.
// Accepts float64, int, int64, json.Number and numeric strings. Rejects booleans.
// Whitespace-only strings return ErrCoercionFailed.
func coerceNumeric(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case float64:
		return CoercionResult{Value: v}, nil
	case int:
		return CoercionResult{Value: float64(v)}, nil
	case int64:
		return CoercionResult{Value: float64(v)}, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// CoerceThreshold converts a decoded comparedValue.
// Empty strings and null become 0, matching an empty number input.
func CoerceThreshold(value any) (float64, error) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	res, err := Coerce(value, FieldTypeNumeric)
	if err != nil {
		return 0, err
	}
	if res.IsNull {
		return 0, nil
	}
	return res.Value.(float64), nil
}

// CoerceID converts a decoded id argument. Ids must be integral; null becomes 0.
func CoerceID(value any) (types.ID, error) {
	id, ok, err := recordID(value)
	if err != nil {
		return 0, err
	}
	if !ok && value != nil {
		return 0, types.ErrCoercionFailed
	}
	return id, nil
}

// recordID coerces a stored id. ok is false for null and for numbers that are
// not exact integers, which the caller replaces with a fresh id.
func recordID(value any) (types.ID, bool, error) {
	res, err := Coerce(value, FieldTypeNumeric)
	if err != nil {
		return 0, false, err
	}
	if res.IsNull {
		return 0, false, nil
	}
	f := res.Value.(float64)
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, false, nil
	}
	return types.ID(f), true, nil
}
