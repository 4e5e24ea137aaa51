// internal/rules/store.go
package rules

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/solatis/rulebook/internal/types"
)

// Observer is notified after every dispatched command.
// Observe runs with the store lock held, so calls arrive in dispatch order;
// it must not call back into the Store or keep the state.
// Implemented by the metrics recorder; may be nil.
type Observer interface {
	Observe(command string, err error, state State)
}

// Store owns the editor state for one session.
// The mutex serializes callers; each Dispatch runs one pure transition to completion.
type Store struct {
	mu       sync.Mutex
	state    State
	session  types.SessionID
	logger   zerolog.Logger
	observer Observer
}

// NewStore creates a store holding the empty initial state.
func NewStore(logger zerolog.Logger, observer Observer) *Store {
	session := types.NewSessionID()
	return &Store{
		state:    NewState(),
		session:  session,
		logger:   logger.With().Str("session", string(session)).Logger(),
		observer: observer,
	}
}

// Session returns the store's session id.
func (s *Store) Session() types.SessionID {
	return s.session
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies cmd. On error the state is left unchanged.
func (s *Store) Dispatch(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Apply(s.state, cmd)
	s.state = next

	event := s.logger.Debug()
	if err != nil {
		event = s.logger.Warn().Err(err)
	}
	event.Str("command", cmd.Name()).
		Int("rule_sets", len(s.state.RuleSets)).
		Bool("edit_mode", s.state.IsEditMode).
		Msg("command dispatched")

	s.notify(cmd.Name(), err)
	return err
}

// DispatchNamed decodes and applies a command by name.
func (s *Store) DispatchNamed(name string, args []byte) error {
	cmd, err := DecodeCommand(name, args)
	if err != nil {
		s.mu.Lock()
		s.notify(name, err)
		s.mu.Unlock()
		return err
	}
	return s.Dispatch(cmd)
}

// notify must be called with mu held.
func (s *Store) notify(command string, err error) {
	if s.observer != nil {
		s.observer.Observe(command, err, s.state)
	}
}

// mustDispatch runs commands whose transitions have no error path.
func (s *Store) mustDispatch(cmd Command) {
	if err := s.Dispatch(cmd); err != nil {
		// unreachable for the infallible commands routed here
		s.logger.Error().Err(err).Str("command", cmd.Name()).Msg("infallible command failed")
	}
}

func (s *Store) SetRuleSets(ruleSets []types.RuleSet) { s.mustDispatch(SetRuleSets{RuleSets: ruleSets}) }

func (s *Store) SelectRuleSet(id types.ID) error { return s.Dispatch(SelectRuleSet{ID: id}) }

func (s *Store) SetEditMode(enabled bool) { s.mustDispatch(SetEditMode{Enabled: enabled}) }

func (s *Store) UpdateRuleSetName(text string) { s.mustDispatch(UpdateRuleSetName{Text: text}) }

func (s *Store) SaveRuleSetName() { s.mustDispatch(SaveRuleSetName{}) }

func (s *Store) AddRule() { s.mustDispatch(AddRule{}) }

func (s *Store) UpdateRule(ruleID types.ID, patch RulePatch) {
	s.mustDispatch(UpdateRule{RuleID: ruleID, Patch: patch})
}

func (s *Store) DeleteRule(ruleID types.ID) { s.mustDispatch(DeleteRule{RuleID: ruleID}) }

func (s *Store) CopyRuleSet() { s.mustDispatch(CopyRuleSet{}) }

func (s *Store) AddNewRuleSet() { s.mustDispatch(AddNewRuleSet{}) }

func (s *Store) DeleteRuleSet() { s.mustDispatch(DeleteRuleSet{}) }

func (s *Store) MoveRule(fromIndex, toIndex int) error {
	return s.Dispatch(MoveRule{FromIndex: fromIndex, ToIndex: toIndex})
}

// Evaluate applies the selected ruleset to payload.
func (s *Store) Evaluate(payload types.Payload) ([]types.Finding, error) {
	rs, ok := s.State().Selected()
	if !ok {
		return nil, types.ErrNoSelection
	}
	return Evaluate(rs, payload)
}
