package interchange

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/solatis/rulebook/internal/types"
)

// Format selects the export encoding.
type Format string

const (
	// FormatJSON writes a JSON array of rulesets, the shape Import accepts.
	FormatJSON Format = "json"
	// FormatYAML writes the same list as YAML.
	FormatYAML Format = "yaml"
	// FormatDocument writes the bulk load envelope as JSON.
	FormatDocument Format = "document"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatJSON, FormatYAML, FormatDocument:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, yaml or document)", name)
	}
}

// Export writes ruleSets to w in the given format.
func Export(w io.Writer, ruleSets []types.RuleSet, format Format) error {
	out := withEmptyRules(ruleSets)

	switch format {
	case FormatJSON, "":
		return writeJSON(w, out)
	case FormatDocument:
		return writeJSON(w, types.Document{RuleSets: out})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// withEmptyRules copies ruleSets so nil slices encode as [] rather than null.
func withEmptyRules(ruleSets []types.RuleSet) []types.RuleSet {
	out := make([]types.RuleSet, len(ruleSets))
	for i, rs := range ruleSets {
		out[i] = rs.Clone()
	}
	return out
}
