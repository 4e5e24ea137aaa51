// Package interchange reads and writes the ruleset exchange formats.
//
// Import accepts a JSON array of rulesets pasted by a user and reports failures
// with a message fit for display. Documents are the bulk load envelope
// { "rule_sets": [...] }. Export writes the same shapes back out, as JSON or YAML.
package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/rulebook/internal/rules"
	"github.com/solatis/rulebook/internal/types"
)

// Import failure messages shown to the user.
const (
	msgParseFailed = "Error parsing JSON: %s"
	msgNotAnArray  = "Invalid JSON format. Expected an array of rulesets."
)

// ImportError is returned when import text is rejected.
// Message is the text shown to the user; Err is the underlying cause, if any.
type ImportError struct {
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	return e.Message
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ParseImport parses import text into rulesets.
// The caller replaces the catalog with the result; on error nothing should change.
func ParseImport(data []byte) ([]types.RuleSet, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ImportError{Message: fmt.Sprintf(msgParseFailed, err), Err: err}
	}
	if _, ok := top.([]any); !ok {
		return nil, &ImportError{Message: msgNotAnArray}
	}

	ruleSets, err := rules.DecodeRuleSets(data)
	if err != nil {
		return nil, &ImportError{Message: fmt.Sprintf(msgParseFailed, err), Err: err}
	}
	return ruleSets, nil
}

// ParseDocument parses a bulk load document.
// A missing or null rule_sets key is ErrMalformedDocument; an empty list is valid.
func ParseDocument(data []byte) ([]types.RuleSet, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	raw, ok := doc["rule_sets"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, types.ErrMalformedDocument
	}

	ruleSets, err := rules.DecodeRuleSets(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule_sets: %w", err)
	}
	return ruleSets, nil
}
