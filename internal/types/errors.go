package types

import "errors"

// Sentinel errors for rulebook operations.
var (
	// ErrRuleSetNotFound indicates a selection targeted an id absent from the catalog.
	ErrRuleSetNotFound = errors.New("ruleset not found")

	// ErrIndexOutOfRange indicates a reorder index outside the selected ruleset's rules.
	ErrIndexOutOfRange = errors.New("rule index out of range")

	// ErrUnknownCommand indicates a dispatched command name has no transition.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidArguments indicates command arguments could not be decoded.
	ErrInvalidArguments = errors.New("invalid command arguments")

	// ErrCoercionFailed indicates a value could not be coerced to a number.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrNoSelection indicates an operation needs a selected ruleset and there is none.
	ErrNoSelection = errors.New("no ruleset selected")

	// ErrMalformedDocument indicates a bulk document without a rule_sets key.
	ErrMalformedDocument = errors.New("document has no rule_sets key")
)
