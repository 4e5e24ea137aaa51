// internal/rules/reorder.go
package rules

import (
	"fmt"

	"github.com/solatis/rulebook/internal/types"
)

// Move returns a copy of rules with the element at from removed and
// reinserted at to. Relative order of all other elements is preserved.
// Indices outside [0, len(rules)) return ErrIndexOutOfRange.
func Move(rules []types.Rule, from, to int) ([]types.Rule, error) {
	n := len(rules)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d over %d rules", types.ErrIndexOutOfRange, from, to, n)
	}

	out := make([]types.Rule, 0, n)
	moved := rules[from]
	for i, r := range rules {
		if i == from {
			continue
		}
		if len(out) == to {
			out = append(out, moved)
		}
		out = append(out, r)
	}
	if len(out) < n {
		out = append(out, moved)
	}
	return out, nil
}
