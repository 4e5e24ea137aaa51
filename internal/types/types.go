// Package types provides the ruleset data model shared across rulebook components.
//
// Zero-dependency design: types.go and errors.go use only the standard library so
// the model can be embedded in clients without pulling in the server stack. Session
// id utilities in ids.go import uuid but are isolated in their own file.
//
// Wire shape: field names and JSON tags are the exchange format for bulk load,
// import and export documents and must not change.
package types

import "encoding/json"

// ID identifies a RuleSet or a Rule.
// Rule ids are unique within their owning RuleSet; generated ids are unique across
// the whole store state.
type ID int64

// Comparator is the relational operator or absence marker applied to a measurement.
type Comparator string

const (
	// ComparatorIs is the legacy spelling of the absence condition.
	ComparatorIs Comparator = "is"
	// ComparatorNotPresent is the current spelling of the absence condition.
	ComparatorNotPresent Comparator = "not present"
	// ComparatorGTE matches measured values greater than or equal to the threshold.
	ComparatorGTE Comparator = ">="
	// ComparatorLT matches measured values strictly below the threshold.
	ComparatorLT Comparator = "<"
)

// IsAbsence reports whether c is one of the spellings of "value absent".
func (c Comparator) IsAbsence() bool {
	return c == ComparatorIs || c == ComparatorNotPresent
}

// Action is the outcome attached to a finding. Open set: unknown values are kept as-is.
type Action string

const (
	ActionNormal Action = "Normal"
	ActionReflux Action = "Reflux"
)

// NotApplicable is the ComparedValue sentinel used with absence comparators.
const NotApplicable = -1.0

// Rule maps one measurement comparison to a finding and an action.
type Rule struct {
	ID            ID         `json:"id" yaml:"id"`
	UnitName      string     `json:"unitName" yaml:"unitName"`
	FindingName   string     `json:"findingName" yaml:"findingName"`
	Comparator    Comparator `json:"comparator" yaml:"comparator"`
	Measurement   string     `json:"measurement" yaml:"measurement"`
	ComparedValue float64    `json:"comparedValue" yaml:"comparedValue"`
	Action        Action     `json:"action" yaml:"action"`
}

// RuleSet is a named, ordered collection of rules.
// Order is evaluation and display priority.
type RuleSet struct {
	ID    ID     `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// Clone returns a deep copy; the rules slice is never shared.
func (rs RuleSet) Clone() RuleSet {
	out := rs
	out.Rules = make([]Rule, len(rs.Rules))
	copy(out.Rules, rs.Rules)
	return out
}

// RuleIndex returns the position of the rule with the given id, or -1.
func (rs RuleSet) RuleIndex(id ID) int {
	for i, r := range rs.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Document is the bulk load envelope: { "rule_sets": [...] }.
// RuleSets is nil when the key is missing so callers can tell it apart from an empty list.
type Document struct {
	RuleSets []RuleSet `json:"rule_sets" yaml:"rule_sets"`
}

// Payload holds measured values keyed by measurement label.
// json.RawMessage wrapper preserves original bytes; values are coerced at evaluation time.
type Payload json.RawMessage

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(p).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(p).UnmarshalJSON(data)
}

// Finding is produced when a rule matches a payload.
type Finding struct {
	RuleID      ID     `json:"ruleId"`
	Measurement string `json:"measurement"`
	FindingName string `json:"findingName"`
	Action      Action `json:"action"`
	Value       any    `json:"value"` // coerced measured value, nil for absence matches
	Position    int    `json:"position"`
}

// MaxID returns the largest ruleset or rule id present, or 0 for an empty catalog.
func MaxID(ruleSets []RuleSet) ID {
	var max ID
	for _, rs := range ruleSets {
		if rs.ID > max {
			max = rs.ID
		}
		for _, r := range rs.Rules {
			if r.ID > max {
				max = r.ID
			}
		}
	}
	return max
}
