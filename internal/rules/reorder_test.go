// internal/rules/reorder_test.go
package rules

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/rulebook/internal/types"
)

func rulesWithIDs(ids ...types.ID) []types.Rule {
	out := make([]types.Rule, len(ids))
	for i, id := range ids {
		out[i] = types.Rule{ID: id}
	}
	return out
}

func ruleIDs(rules []types.Rule) []types.ID {
	out := make([]types.ID, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []types.ID
	}{
		{"first to last", 0, 3, []types.ID{2, 3, 4, 1}},
		{"last to first", 3, 0, []types.ID{4, 1, 2, 3}},
		{"forward one", 1, 2, []types.ID{1, 3, 2, 4}},
		{"backward one", 2, 1, []types.ID{1, 3, 2, 4}},
		{"first to middle", 0, 2, []types.ID{2, 3, 1, 4}},
		{"same index", 2, 2, []types.ID{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := rulesWithIDs(1, 2, 3, 4)
			got, err := Move(input, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Move() error = %v, want nil", err)
			}
			if !reflect.DeepEqual(ruleIDs(got), tt.want) {
				t.Errorf("Move() = %v, want %v", ruleIDs(got), tt.want)
			}
			if !reflect.DeepEqual(ruleIDs(input), []types.ID{1, 2, 3, 4}) {
				t.Errorf("Move() modified its input: %v", ruleIDs(input))
			}
		})
	}
}

func TestMove_Errors(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		from, to int
	}{
		{"empty", 0, 0, 0},
		{"from past end", 3, 3, 0},
		{"to past end", 3, 0, 3},
		{"negative from", 3, -1, 0},
		{"negative to", 3, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]types.ID, tt.n)
			for i := range ids {
				ids[i] = types.ID(i + 1)
			}
			_, err := Move(rulesWithIDs(ids...), tt.from, tt.to)
			if !errors.Is(err, types.ErrIndexOutOfRange) {
				t.Errorf("Move() error = %v, want ErrIndexOutOfRange", err)
			}
		})
	}
}

// Property-based test: a move is a permutation that lands the element at to
func TestMove_PropertyPermutation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("move preserves elements and relative order", prop.ForAll(
		func(n, a, b int) bool {
			from, to := a%n, b%n
			ids := make([]types.ID, n)
			for i := range ids {
				ids[i] = types.ID(i + 1)
			}
			got, err := Move(rulesWithIDs(ids...), from, to)
			if err != nil || len(got) != n {
				return false
			}
			if got[to].ID != ids[from] {
				return false
			}

			sorted := ruleIDs(got)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			if !reflect.DeepEqual(sorted, ids) {
				return false
			}

			// removing the moved element from both sides leaves identical sequences
			var before, after []types.ID
			for _, id := range ids {
				if id != ids[from] {
					before = append(before, id)
				}
			}
			for _, r := range got {
				if r.ID != ids[from] {
					after = append(after, r.ID)
				}
			}
			return reflect.DeepEqual(before, after)
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.Property("move(i, i) is the identity", prop.ForAll(
		func(n, a int) bool {
			i := a % n
			ids := make([]types.ID, n)
			for k := range ids {
				ids[k] = types.ID(k + 1)
			}
			got, err := Move(rulesWithIDs(ids...), i, i)
			return err == nil && reflect.DeepEqual(ruleIDs(got), ids)
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
