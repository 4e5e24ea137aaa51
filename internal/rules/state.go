// internal/rules/state.go
package rules

import "github.com/solatis/rulebook/internal/types"

/*
 * Editor state and pure transitions.
 *
 * State is the single container for the ruleset catalog, the current
 * selection and the edit-mode flags. Every mutation is a Command applied by
 * Apply, which works on a deep copy and either returns the new state or the
 * unchanged input plus an error. Nothing outside this package mutates a
 * State in place.
 *
 * Id generation: NextID is part of the state so transitions stay pure. Apply
 * raises it above every id present before running a command, so ids handed
 * out within one transition never collide with each other or with existing
 * rulesets and rules (copyRuleSet allocates many at once).
 *
 * Edit mode: EditingRuleSetName is a staging buffer. It is filled when edit
 * mode is entered and only reaches RuleSet.Name through SaveRuleSetName.
 * Selection changes and ruleset deletion force edit mode off, so the buffer
 * always refers to the ruleset selected when editing started.
 */

// State is the editor state for one session.
type State struct {
	RuleSets           []types.RuleSet `json:"ruleSets"`
	SelectedRuleSetID  *types.ID       `json:"selectedRuleSetId"`
	IsEditMode         bool            `json:"isEditMode"`
	EditingRuleSetName string          `json:"editingRuleSetName"`
	NextID             types.ID        `json:"nextId"`
}

// NewState returns the empty initial state.
func NewState() State {
	return State{RuleSets: []types.RuleSet{}, NextID: 1}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.RuleSets = cloneRuleSets(s.RuleSets)
	if s.SelectedRuleSetID != nil {
		id := *s.SelectedRuleSetID
		out.SelectedRuleSetID = &id
	}
	return out
}

// Selected returns a copy of the selected ruleset.
func (s State) Selected() (types.RuleSet, bool) {
	idx := s.selectedIndex()
	if idx < 0 {
		return types.RuleSet{}, false
	}
	return s.RuleSets[idx].Clone(), true
}

// RuleSet returns a copy of the ruleset with the given id.
func (s State) RuleSet(id types.ID) (types.RuleSet, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return types.RuleSet{}, false
	}
	return s.RuleSets[idx].Clone(), true
}

func (s *State) indexOf(id types.ID) int {
	for i := range s.RuleSets {
		if s.RuleSets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) selectedIndex() int {
	if s.SelectedRuleSetID == nil {
		return -1
	}
	return s.indexOf(*s.SelectedRuleSetID)
}

// selected returns a pointer into RuleSets; only valid on a state owned by the caller.
func (s *State) selected() *types.RuleSet {
	idx := s.selectedIndex()
	if idx < 0 {
		return nil
	}
	return &s.RuleSets[idx]
}

func (s *State) selectID(id types.ID) {
	s.SelectedRuleSetID = &id
}

// reserveIDs keeps NextID above every id in the catalog.
func (s *State) reserveIDs() {
	if floor := types.MaxID(s.RuleSets) + 1; s.NextID < floor {
		s.NextID = floor
	}
}

func (s *State) allocID() types.ID {
	id := s.NextID
	s.NextID++
	return id
}

// Apply runs cmd against a copy of s.
// On error the input state is returned unchanged.
func Apply(s State, cmd Command) (State, error) {
	next := s.Clone()
	next.reserveIDs()
	if err := cmd.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

func cloneRuleSets(in []types.RuleSet) []types.RuleSet {
	out := make([]types.RuleSet, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
