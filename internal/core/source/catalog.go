package source

import (
	"context"
	"net/url"

	"github.com/solatis/rulebook/internal/core/db"
	"github.com/solatis/rulebook/internal/types"
)

// CatalogSource reads rulesets from a migrated catalog database.
// The connection is opened for the load and closed afterwards.
type CatalogSource struct {
	URL string
}

func (s *CatalogSource) LoadRuleSets(ctx context.Context) ([]types.RuleSet, error) {
	conn, err := db.Open(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	catalog, err := db.NewCatalog(conn)
	if err != nil {
		return nil, err
	}
	return catalog.LoadRuleSets(ctx)
}

// redact strips credentials from a database URL for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
