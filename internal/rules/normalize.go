// internal/rules/normalize.go
package rules

import "github.com/solatis/rulebook/internal/types"

// Normalize enforces the comparator invariant: an absence comparator carries
// ComparedValue == NotApplicable and an empty UnitName.
// Every transition that can change a comparator runs the rule through here;
// loaded and imported rules are stored as given.
func Normalize(r types.Rule) types.Rule {
	if r.Comparator.IsAbsence() {
		r.ComparedValue = types.NotApplicable
		r.UnitName = ""
	}
	return r
}
