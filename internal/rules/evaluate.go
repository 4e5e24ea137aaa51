// internal/rules/evaluate.go
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/rulebook/internal/types"
)

/*
 * Ruleset evaluation.
 *
 * Applies a ruleset to a payload of measured values (a JSON object keyed by
 * measurement label) and reports every matching rule as a Finding, in rule
 * order. Rule order is priority: Findings[0] is the highest-priority match.
 *
 * Per-rule flow:
 *   1. Look up the measurement label in the payload
 *   2. Absence comparators match when the label is missing or null
 *   3. Threshold comparators coerce the value to a number and compare it
 *      with ComparedValue; missing values and coercion failures never match
 *   4. Unknown comparators never match
 */

// Evaluate returns the findings produced by rs for payload.
// Returns an error only when payload is not a JSON object.
func Evaluate(rs types.RuleSet, payload types.Payload) ([]types.Finding, error) {
	measurements, err := decodeMeasurements(payload)
	if err != nil {
		return nil, err
	}

	findings := []types.Finding{}
	for pos, rule := range rs.Rules {
		matched, value := evaluateRule(rule, measurements)
		if !matched {
			continue
		}
		findings = append(findings, types.Finding{
			RuleID:      rule.ID,
			Measurement: rule.Measurement,
			FindingName: rule.FindingName,
			Action:      rule.Action,
			Value:       value,
			Position:    pos,
		})
	}
	return findings, nil
}

// evaluateRule reports whether rule matches and the coerced value it matched on.
func evaluateRule(rule types.Rule, measurements map[string]any) (bool, any) {
	op, ok := OperatorFor(rule.Comparator)
	if !ok {
		return false, nil
	}

	raw := measurements[rule.Measurement]
	if op == OpIsNull {
		return Compare(op, raw, nil), nil
	}

	coerced, err := Coerce(raw, FieldTypeNumeric)
	if err != nil || coerced.IsNull {
		return false, nil
	}
	if Compare(op, coerced.Value, rule.ComparedValue) {
		return true, coerced.Value
	}
	return false, nil
}

func decodeMeasurements(payload types.Payload) (map[string]any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var measurements map[string]any
	if err := dec.Decode(&measurements); err != nil {
		return nil, fmt.Errorf("measurements must be a JSON object: %w", err)
	}
	if measurements == nil {
		measurements = map[string]any{}
	}
	return measurements, nil
}
