// internal/rules/decode.go
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/rulebook/internal/types"
)

/*
 * JSON decoding for rulesets, rule patches and named commands.
 *
 * Ids and comparedValue go through numeric coercion so documents written by
 * other editors (numeric strings, integral floats) load unchanged. Ids that
 * are numeric but unusable (null, fractional, beyond float precision) are
 * replaced rather than rejected. Text fields are decoded strictly.
 */

type wireRule struct {
	ID            any              `json:"id"`
	UnitName      string           `json:"unitName"`
	FindingName   string           `json:"findingName"`
	Comparator    types.Comparator `json:"comparator"`
	Measurement   string           `json:"measurement"`
	ComparedValue any              `json:"comparedValue"`
	Action        types.Action     `json:"action"`
}

type wireRuleSet struct {
	ID    any        `json:"id"`
	Name  string     `json:"name"`
	Rules []wireRule `json:"rules"`
}

// DecodeRuleSets decodes a JSON array of rulesets.
// Records whose id is null, missing or not a whole number get fresh ids above
// the largest integral id in the document, in document order.
func DecodeRuleSets(data []byte) ([]types.RuleSet, error) {
	var wire []wireRuleSet
	if err := decodeNumbers(data, &wire); err != nil {
		return nil, err
	}

	out := make([]types.RuleSet, len(wire))
	var unassigned []*types.ID
	for i, ws := range wire {
		out[i] = types.RuleSet{Name: ws.Name, Rules: make([]types.Rule, len(ws.Rules))}
		id, ok, err := recordID(ws.ID)
		if err != nil {
			return nil, fmt.Errorf("rule_sets[%d].id: %w", i, err)
		}
		if ok {
			out[i].ID = id
		} else {
			unassigned = append(unassigned, &out[i].ID)
		}

		for j, wr := range ws.Rules {
			rule, ok, err := wr.rule()
			if err != nil {
				return nil, fmt.Errorf("rule_sets[%d].rules[%d].%w", i, j, err)
			}
			out[i].Rules[j] = rule
			if !ok {
				unassigned = append(unassigned, &out[i].Rules[j].ID)
			}
		}
	}

	next := types.MaxID(out) + 1
	for _, id := range unassigned {
		*id = next
		next++
	}
	return out, nil
}

// rule converts a wire rule; ok is false when the id must be reassigned.
func (wr wireRule) rule() (types.Rule, bool, error) {
	id, ok, err := recordID(wr.ID)
	if err != nil {
		return types.Rule{}, false, fmt.Errorf("id: %w", err)
	}
	threshold, err := CoerceThreshold(wr.ComparedValue)
	if err != nil {
		return types.Rule{}, false, fmt.Errorf("comparedValue: %w", err)
	}
	return types.Rule{
		ID:            id,
		UnitName:      wr.UnitName,
		FindingName:   wr.FindingName,
		Comparator:    wr.Comparator,
		Measurement:   wr.Measurement,
		ComparedValue: threshold,
		Action:        wr.Action,
	}, ok, nil
}

// RulePatch is a partial rule update. Nil fields are left untouched.
// There is no id field: a rule's identity never changes.
type RulePatch struct {
	UnitName      *string           `json:"unitName,omitempty"`
	FindingName   *string           `json:"findingName,omitempty"`
	Comparator    *types.Comparator `json:"comparator,omitempty"`
	Measurement   *string           `json:"measurement,omitempty"`
	ComparedValue *float64          `json:"comparedValue,omitempty"`
	Action        *types.Action     `json:"action,omitempty"`
}

// Merge applies the patch to r. A patch touching the comparator is normalized.
func (p RulePatch) Merge(r types.Rule) types.Rule {
	if p.UnitName != nil {
		r.UnitName = *p.UnitName
	}
	if p.FindingName != nil {
		r.FindingName = *p.FindingName
	}
	if p.Comparator != nil {
		r.Comparator = *p.Comparator
	}
	if p.Measurement != nil {
		r.Measurement = *p.Measurement
	}
	if p.ComparedValue != nil {
		r.ComparedValue = *p.ComparedValue
	}
	if p.Action != nil {
		r.Action = *p.Action
	}
	if p.Comparator != nil {
		r = Normalize(r)
	}
	return r
}

// UnmarshalJSON decodes a patch, coercing comparedValue. Unknown keys, including id, are ignored.
func (p *RulePatch) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var patch RulePatch
	strs := map[string]**string{
		"unitName":    &patch.UnitName,
		"findingName": &patch.FindingName,
		"measurement": &patch.Measurement,
	}
	for key, dst := range strs {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = &v
	}
	if raw, ok := fields["comparator"]; ok {
		var v types.Comparator
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("comparator: %w", err)
		}
		patch.Comparator = &v
	}
	if raw, ok := fields["action"]; ok {
		var v types.Action
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("action: %w", err)
		}
		patch.Action = &v
	}
	if raw, ok := fields["comparedValue"]; ok {
		var v any
		if err := decodeNumbers(raw, &v); err != nil {
			return fmt.Errorf("comparedValue: %w", err)
		}
		f, err := CoerceThreshold(v)
		if err != nil {
			return fmt.Errorf("comparedValue: %w", err)
		}
		patch.ComparedValue = &f
	}

	*p = patch
	return nil
}

// commandDecoders maps command names to argument decoders.
var commandDecoders = map[string]func(args []byte) (Command, error){
	CmdSetRuleSets: func(args []byte) (Command, error) {
		var a struct {
			RuleSets json.RawMessage `json:"ruleSets"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		if len(a.RuleSets) == 0 {
			return SetRuleSets{RuleSets: []types.RuleSet{}}, nil
		}
		sets, err := DecodeRuleSets(a.RuleSets)
		if err != nil {
			return nil, err
		}
		return SetRuleSets{RuleSets: sets}, nil
	},
	CmdSelectRuleSet: func(args []byte) (Command, error) {
		var a struct {
			ID any `json:"id"`
		}
		if err := decodeNumbers(args, &a); err != nil {
			return nil, err
		}
		id, err := CoerceID(a.ID)
		if err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		return SelectRuleSet{ID: id}, nil
	},
	CmdSetEditMode: func(args []byte) (Command, error) {
		var a struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return SetEditMode{Enabled: a.Enabled}, nil
	},
	CmdUpdateRuleSetName: func(args []byte) (Command, error) {
		var a struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return UpdateRuleSetName{Text: a.Name}, nil
	},
	CmdSaveRuleSetName: func([]byte) (Command, error) { return SaveRuleSetName{}, nil },
	CmdAddRule:         func([]byte) (Command, error) { return AddRule{}, nil },
	CmdUpdateRule: func(args []byte) (Command, error) {
		var a struct {
			RuleID  any       `json:"ruleId"`
			Updates RulePatch `json:"updates"`
		}
		if err := decodeNumbers(args, &a); err != nil {
			return nil, err
		}
		id, err := CoerceID(a.RuleID)
		if err != nil {
			return nil, fmt.Errorf("ruleId: %w", err)
		}
		return UpdateRule{RuleID: id, Patch: a.Updates}, nil
	},
	CmdDeleteRule: func(args []byte) (Command, error) {
		var a struct {
			RuleID any `json:"ruleId"`
		}
		if err := decodeNumbers(args, &a); err != nil {
			return nil, err
		}
		id, err := CoerceID(a.RuleID)
		if err != nil {
			return nil, fmt.Errorf("ruleId: %w", err)
		}
		return DeleteRule{RuleID: id}, nil
	},
	CmdCopyRuleSet:   func([]byte) (Command, error) { return CopyRuleSet{}, nil },
	CmdAddNewRuleSet: func([]byte) (Command, error) { return AddNewRuleSet{}, nil },
	CmdDeleteRuleSet: func([]byte) (Command, error) { return DeleteRuleSet{}, nil },
	CmdMoveRule: func(args []byte) (Command, error) {
		var a struct {
			FromIndex int `json:"fromIndex"`
			ToIndex   int `json:"toIndex"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return MoveRule{FromIndex: a.FromIndex, ToIndex: a.ToIndex}, nil
	},
}

// DecodeCommand builds a command from its name and JSON arguments.
// Empty or null args decode as an empty object.
func DecodeCommand(name string, args []byte) (Command, error) {
	decode, ok := commandDecoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownCommand, name)
	}
	if trimmed := bytes.TrimSpace(args); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		args = []byte("{}")
	}
	cmd, err := decode(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidArguments, name, err)
	}
	return cmd, nil
}

// CommandNames lists every dispatchable command name.
func CommandNames() []string {
	return []string{
		CmdSetRuleSets, CmdSelectRuleSet, CmdSetEditMode, CmdUpdateRuleSetName,
		CmdSaveRuleSetName, CmdAddRule, CmdUpdateRule, CmdDeleteRule,
		CmdCopyRuleSet, CmdAddNewRuleSet, CmdDeleteRuleSet, CmdMoveRule,
	}
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
