// internal/rules/commands.go
package rules

import (
	"fmt"

	"github.com/solatis/rulebook/internal/types"
)

/*
 * Named transitions of the editor state.
 *
 * Each command mirrors one editor intent. Preconditions that are not met
 * make the command a silent no-op, with two exceptions that return a
 * sentinel error and leave state untouched:
 *   - SelectRuleSet with an id absent from the catalog (ErrRuleSetNotFound)
 *   - MoveRule with an index outside the selected rules (ErrIndexOutOfRange)
 *
 * Commands that act on "the selected ruleset" do nothing when there is no
 * selection or the selected id has disappeared.
 */

// Command is one named transition. Implementations live in this package.
type Command interface {
	Name() string
	apply(s *State) error
}

// Command names, as dispatched by remote editors.
const (
	CmdSetRuleSets       = "setRuleSets"
	CmdSelectRuleSet     = "selectRuleSet"
	CmdSetEditMode       = "setEditMode"
	CmdUpdateRuleSetName = "updateRuleSetName"
	CmdSaveRuleSetName   = "saveRuleSetName"
	CmdAddRule           = "addRule"
	CmdUpdateRule        = "updateRule"
	CmdDeleteRule        = "deleteRule"
	CmdCopyRuleSet       = "copyRuleSet"
	CmdAddNewRuleSet     = "addNewRuleSet"
	CmdDeleteRuleSet     = "deleteRuleSet"
	CmdMoveRule          = "moveRule"
)

// SetRuleSets replaces the catalog wholesale.
// With no selection (or a selection that no longer exists) the first ruleset is selected.
type SetRuleSets struct {
	RuleSets []types.RuleSet
}

func (SetRuleSets) Name() string { return CmdSetRuleSets }

func (c SetRuleSets) apply(s *State) error {
	s.RuleSets = cloneRuleSets(c.RuleSets)

	if s.SelectedRuleSetID != nil && s.selectedIndex() < 0 {
		s.SelectedRuleSetID = nil
		s.IsEditMode = false
		s.EditingRuleSetName = ""
	}
	if s.SelectedRuleSetID == nil && len(s.RuleSets) > 0 {
		s.selectID(s.RuleSets[0].ID)
	}
	s.reserveIDs()
	return nil
}

// SelectRuleSet changes the selection and leaves edit mode.
type SelectRuleSet struct {
	ID types.ID
}

func (SelectRuleSet) Name() string { return CmdSelectRuleSet }

func (c SelectRuleSet) apply(s *State) error {
	if s.indexOf(c.ID) < 0 {
		return fmt.Errorf("%w: %d", types.ErrRuleSetNotFound, c.ID)
	}
	s.selectID(c.ID)
	s.IsEditMode = false
	return nil
}

// SetEditMode enters or leaves edit mode.
// Entering stages the selected ruleset's name; leaving discards the staged name.
type SetEditMode struct {
	Enabled bool
}

func (SetEditMode) Name() string { return CmdSetEditMode }

func (c SetEditMode) apply(s *State) error {
	s.IsEditMode = c.Enabled
	if c.Enabled {
		s.EditingRuleSetName = ""
		if rs := s.selected(); rs != nil {
			s.EditingRuleSetName = rs.Name
		}
	}
	return nil
}

// UpdateRuleSetName edits the staged name. Ignored outside edit mode.
type UpdateRuleSetName struct {
	Text string
}

func (UpdateRuleSetName) Name() string { return CmdUpdateRuleSetName }

func (c UpdateRuleSetName) apply(s *State) error {
	if !s.IsEditMode {
		return nil
	}
	s.EditingRuleSetName = c.Text
	return nil
}

// SaveRuleSetName commits the staged name into the selected ruleset.
// Ignored outside edit mode so a stale buffer is never committed.
type SaveRuleSetName struct{}

func (SaveRuleSetName) Name() string { return CmdSaveRuleSetName }

func (SaveRuleSetName) apply(s *State) error {
	if !s.IsEditMode {
		return nil
	}
	if rs := s.selected(); rs != nil {
		rs.Name = s.EditingRuleSetName
	}
	return nil
}

// AddRule appends a blank absence rule to the selected ruleset.
type AddRule struct{}

func (AddRule) Name() string { return CmdAddRule }

func (AddRule) apply(s *State) error {
	rs := s.selected()
	if rs == nil {
		return nil
	}
	rs.Rules = append(rs.Rules, NewRule(s.allocID()))
	return nil
}

// NewRule returns the default rule added by AddRule.
func NewRule(id types.ID) types.Rule {
	return Normalize(types.Rule{
		ID:            id,
		Comparator:    types.ComparatorIs,
		ComparedValue: types.NotApplicable,
		Action:        types.ActionNormal,
	})
}

// UpdateRule shallow-merges Patch into a rule of the selected ruleset.
type UpdateRule struct {
	RuleID types.ID
	Patch  RulePatch
}

func (UpdateRule) Name() string { return CmdUpdateRule }

func (c UpdateRule) apply(s *State) error {
	rs := s.selected()
	if rs == nil {
		return nil
	}
	idx := rs.RuleIndex(c.RuleID)
	if idx < 0 {
		return nil
	}
	rs.Rules[idx] = c.Patch.Merge(rs.Rules[idx])
	return nil
}

// DeleteRule removes a rule from the selected ruleset.
type DeleteRule struct {
	RuleID types.ID
}

func (DeleteRule) Name() string { return CmdDeleteRule }

func (c DeleteRule) apply(s *State) error {
	rs := s.selected()
	if rs == nil {
		return nil
	}
	kept := rs.Rules[:0]
	for _, r := range rs.Rules {
		if r.ID != c.RuleID {
			kept = append(kept, r)
		}
	}
	rs.Rules = kept
	return nil
}

// CopyRuleSet appends a duplicate of the selected ruleset named "<name>_(1)".
// The copy and each of its rules get fresh ids; selection is unchanged.
type CopyRuleSet struct{}

func (CopyRuleSet) Name() string { return CmdCopyRuleSet }

func (CopyRuleSet) apply(s *State) error {
	rs := s.selected()
	if rs == nil {
		return nil
	}
	dup := rs.Clone()
	dup.Name = rs.Name + "_(1)"
	dup.ID = s.allocID()
	for i := range dup.Rules {
		dup.Rules[i].ID = s.allocID()
	}
	// rs points into RuleSets; append after the last use.
	s.RuleSets = append(s.RuleSets, dup)
	return nil
}

// AddNewRuleSet appends an empty ruleset, selects it and enters edit mode.
type AddNewRuleSet struct{}

func (AddNewRuleSet) Name() string { return CmdAddNewRuleSet }

func (AddNewRuleSet) apply(s *State) error {
	rs := types.RuleSet{
		ID:    s.allocID(),
		Name:  fmt.Sprintf("New Ruleset %d", len(s.RuleSets)+1),
		Rules: []types.Rule{},
	}
	s.RuleSets = append(s.RuleSets, rs)
	s.selectID(rs.ID)
	s.IsEditMode = true
	s.EditingRuleSetName = rs.Name
	return nil
}

// DeleteRuleSet removes the selected ruleset, selects the first remaining one
// and leaves edit mode.
type DeleteRuleSet struct{}

func (DeleteRuleSet) Name() string { return CmdDeleteRuleSet }

func (DeleteRuleSet) apply(s *State) error {
	if idx := s.selectedIndex(); idx >= 0 {
		s.RuleSets = append(s.RuleSets[:idx], s.RuleSets[idx+1:]...)
	}
	s.SelectedRuleSetID = nil
	if len(s.RuleSets) > 0 {
		s.selectID(s.RuleSets[0].ID)
	}
	s.IsEditMode = false
	return nil
}

// MoveRule reorders the selected ruleset's rules (drag and drop).
type MoveRule struct {
	FromIndex int
	ToIndex   int
}

func (MoveRule) Name() string { return CmdMoveRule }

func (c MoveRule) apply(s *State) error {
	rs := s.selected()
	if rs == nil {
		return nil
	}
	moved, err := Move(rs.Rules, c.FromIndex, c.ToIndex)
	if err != nil {
		return err
	}
	rs.Rules = moved
	return nil
}
