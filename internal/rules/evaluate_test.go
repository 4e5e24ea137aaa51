// internal/rules/evaluate_test.go
package rules

import (
	"testing"

	"github.com/solatis/rulebook/internal/types"
)

func refluxRuleSet() types.RuleSet {
	return types.RuleSet{
		ID:   1,
		Name: "Venous reflux",
		Rules: []types.Rule{
			{ID: 1, Measurement: "GSV reflux time", Comparator: types.ComparatorGTE, ComparedValue: 0.5, UnitName: "s", FindingName: "GSV incompetent", Action: types.ActionReflux},
			{ID: 2, Measurement: "GSV reflux time", Comparator: types.ComparatorLT, ComparedValue: 0.5, UnitName: "s", FindingName: "GSV competent", Action: types.ActionNormal},
			{ID: 3, Measurement: "Thrombus", Comparator: types.ComparatorNotPresent, ComparedValue: types.NotApplicable, FindingName: "No thrombus", Action: types.ActionNormal},
			{ID: 4, Measurement: "Occlusion", Comparator: types.ComparatorIs, ComparedValue: types.NotApplicable, FindingName: "Patent", Action: types.ActionNormal},
		},
	}
}

func TestEvaluate_ThresholdMatch(t *testing.T) {
	findings, err := Evaluate(refluxRuleSet(), types.Payload(`{"GSV reflux time": 0.8, "Thrombus": 1, "Occlusion": "yes"}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if len(findings) != 1 {
		t.Fatalf("len(findings) = %d, want 1: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.RuleID != 1 || f.FindingName != "GSV incompetent" || f.Action != types.ActionReflux {
		t.Errorf("finding = %+v, want rule 1 GSV incompetent/Reflux", f)
	}
	if f.Value != 0.8 {
		t.Errorf("Value = %v, want 0.8", f.Value)
	}
	if f.Position != 0 {
		t.Errorf("Position = %d, want 0", f.Position)
	}
}

func TestEvaluate_LessThanWithNumericString(t *testing.T) {
	findings, err := Evaluate(refluxRuleSet(), types.Payload(`{"GSV reflux time": " 0.2 ", "Thrombus": 1, "Occlusion": 0}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if len(findings) != 1 || findings[0].RuleID != 2 {
		t.Fatalf("findings = %+v, want only rule 2", findings)
	}
	if findings[0].Value != 0.2 {
		t.Errorf("Value = %v, want 0.2", findings[0].Value)
	}
}

func TestEvaluate_AbsenceBothSpellings(t *testing.T) {
	findings, err := Evaluate(refluxRuleSet(), types.Payload(`{"Thrombus": null}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	var ids []types.ID
	for _, f := range findings {
		ids = append(ids, f.RuleID)
		if f.Value != nil {
			t.Errorf("absence finding %d Value = %v, want nil", f.RuleID, f.Value)
		}
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 4 {
		t.Errorf("matched rule ids = %v, want [3 4]", ids)
	}
}

func TestEvaluate_EmptyPayload(t *testing.T) {
	findings, err := Evaluate(refluxRuleSet(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	// missing threshold measurements never match; both absence rules do
	if len(findings) != 2 {
		t.Errorf("len(findings) = %d, want 2", len(findings))
	}
}

func TestEvaluate_CoercionFailureSkips(t *testing.T) {
	findings, err := Evaluate(refluxRuleSet(), types.Payload(`{"GSV reflux time": "fast", "Thrombus": 1, "Occlusion": 1}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none", findings)
	}
}

func TestEvaluate_UnknownComparatorNeverMatches(t *testing.T) {
	rs := types.RuleSet{Rules: []types.Rule{{ID: 1, Measurement: "x", Comparator: "==", ComparedValue: 1}}}
	findings, err := Evaluate(rs, types.Payload(`{"x": 1}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none", findings)
	}
}

func TestEvaluate_RuleOrderIsPriority(t *testing.T) {
	rs := types.RuleSet{Rules: []types.Rule{
		{ID: 10, Measurement: "x", Comparator: types.ComparatorGTE, ComparedValue: 1},
		{ID: 20, Measurement: "x", Comparator: types.ComparatorGTE, ComparedValue: 0},
	}}
	findings, err := Evaluate(rs, types.Payload(`{"x": 5}`))
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if len(findings) != 2 || findings[0].RuleID != 10 || findings[1].RuleID != 20 {
		t.Errorf("findings = %+v, want rule 10 then 20", findings)
	}
}

func TestEvaluate_PayloadNotObject(t *testing.T) {
	if _, err := Evaluate(refluxRuleSet(), types.Payload(`[1,2]`)); err == nil {
		t.Errorf("Evaluate() error = nil, want error for array payload")
	}
}
