package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/types"
)

// FileSource reads the bulk document from disk.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
type FileSource struct {
	Path string
}

func (s *FileSource) LoadRuleSets(ctx context.Context) ([]types.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return parseYAMLDocument(data)
	default:
		return interchange.ParseDocument(data)
	}
}

// parseYAMLDocument re-encodes YAML as JSON so both formats share one decoder
// and the same id and threshold coercion.
func parseYAMLDocument(data []byte) ([]types.RuleSet, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml document: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, types.ErrMalformedDocument
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse yaml document: %w", err)
	}
	return interchange.ParseDocument(asJSON)
}
