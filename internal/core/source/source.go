// Package source loads the initial ruleset catalog for an editor session.
//
// A source is named by a location string: an http(s) URL serving the bulk
// document, a catalog database URL, or a local file path. Load never fails:
// when the source cannot be read the fixed sample dataset is used instead and
// the failure is logged.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/rulebook/internal/core/db"
	"github.com/solatis/rulebook/internal/types"
)

// Source yields the rulesets of a bulk document.
type Source interface {
	LoadRuleSets(ctx context.Context) ([]types.RuleSet, error)
}

// Open returns the source for location. An empty location yields a nil
// Source, which Load treats as "use the sample dataset".
func Open(location string) (Source, error) {
	switch {
	case location == "":
		return nil, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location, nil), nil
	case db.IsDatabaseURL(location):
		return &CatalogSource{URL: location}, nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("unsupported source location: %s", location)
	default:
		return &FileSource{Path: location}, nil
	}
}

// Load reads src within timeout. On any failure, or with a nil src, it returns
// the sample dataset and reports fallback=true.
func Load(ctx context.Context, src Source, timeout time.Duration, logger zerolog.Logger) (ruleSets []types.RuleSet, fallback bool) {
	if src == nil {
		logger.Info().Msg("no rule set source configured, using sample dataset")
		return Fallback(), true
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	ruleSets, err := src.LoadRuleSets(ctx)
	if err != nil {
		event := logger.Warn().Err(err)
		if errors.Is(err, types.ErrMalformedDocument) {
			event = event.Bool("malformed", true)
		}
		event.Str("source", describe(src)).Msg("failed to load rule sets, using sample dataset")
		return Fallback(), true
	}

	logger.Info().
		Str("source", describe(src)).
		Int("rule_sets", len(ruleSets)).
		Dur("duration", time.Since(start)).
		Msg("rule sets loaded")
	return ruleSets, false
}

// Fallback returns the sample dataset seeded when loading fails.
func Fallback() []types.RuleSet {
	return []types.RuleSet{
		{
			ID:   1,
			Name: "Sample Ruleset",
			Rules: []types.Rule{
				{
					ID:            1,
					UnitName:      "",
					FindingName:   "Sample Finding",
					Comparator:    types.ComparatorNotPresent,
					Measurement:   "Sample Measurement",
					ComparedValue: 1,
					Action:        types.ActionNormal,
				},
			},
		},
	}
}

func describe(src Source) string {
	switch s := src.(type) {
	case *HTTPSource:
		return s.URL
	case *FileSource:
		return s.Path
	case *CatalogSource:
		return redact(s.URL)
	default:
		return fmt.Sprintf("%T", src)
	}
}
