package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/rulebook/internal/types"
)

// Catalog stores rulesets for bulk loading into an editor.
// It is written wholesale by ReplaceRuleSets and read wholesale by LoadRuleSets;
// editor state is never written back here.
type Catalog struct {
	db      *sqlx.DB
	queries *Queries
}

type ruleSetRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type ruleRow struct {
	RuleSetID     int64   `db:"rule_set_id"`
	ID            int64   `db:"id"`
	Measurement   string  `db:"measurement"`
	Comparator    string  `db:"comparator"`
	ComparedValue float64 `db:"compared_value"`
	UnitName      string  `db:"unit_name"`
	FindingName   string  `db:"finding_name"`
	Action        string  `db:"action"`
}

// NewCatalog wraps an open, migrated database.
func NewCatalog(db *sqlx.DB) (*Catalog, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db, queries: queries}, nil
}

// LoadRuleSets returns every ruleset in catalog order with rules in position order.
func (c *Catalog) LoadRuleSets(ctx context.Context) ([]types.RuleSet, error) {
	var setRows []ruleSetRow
	if err := c.queries.Select(ctx, "list-rule-sets", &setRows); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}

	var ruleRows []ruleRow
	if err := c.queries.Select(ctx, "list-rules", &ruleRows); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	ruleSets := make([]types.RuleSet, len(setRows))
	index := make(map[int64]int, len(setRows))
	for i, row := range setRows {
		ruleSets[i] = types.RuleSet{ID: types.ID(row.ID), Name: row.Name, Rules: []types.Rule{}}
		index[row.ID] = i
	}

	for _, row := range ruleRows {
		i, ok := index[row.RuleSetID]
		if !ok {
			return nil, fmt.Errorf("rule %d references missing rule set %d", row.ID, row.RuleSetID)
		}
		ruleSets[i].Rules = append(ruleSets[i].Rules, types.Rule{
			ID:            types.ID(row.ID),
			Measurement:   row.Measurement,
			Comparator:    types.Comparator(row.Comparator),
			ComparedValue: row.ComparedValue,
			UnitName:      row.UnitName,
			FindingName:   row.FindingName,
			Action:        types.Action(row.Action),
		})
	}

	return ruleSets, nil
}

// ReplaceRuleSets replaces the whole catalog in one transaction.
// Duplicate ruleset ids violate the primary key and abort the replacement.
func (c *Catalog) ReplaceRuleSets(ctx context.Context, ruleSets []types.RuleSet) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := c.queries.WithTx(tx)
	if _, err := q.Exec(ctx, "delete-rules"); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}
	if _, err := q.Exec(ctx, "delete-rule-sets"); err != nil {
		return fmt.Errorf("failed to clear rule sets: %w", err)
	}

	for pos, rs := range ruleSets {
		if _, err := q.Exec(ctx, "insert-rule-set", int64(rs.ID), rs.Name, pos); err != nil {
			return fmt.Errorf("failed to insert rule set %d: %w", rs.ID, err)
		}
		for rulePos, r := range rs.Rules {
			_, err := q.Exec(ctx, "insert-rule",
				int64(rs.ID), rulePos, int64(r.ID),
				r.Measurement, string(r.Comparator), r.ComparedValue,
				r.UnitName, r.FindingName, string(r.Action),
			)
			if err != nil {
				return fmt.Errorf("failed to insert rule %d of rule set %d: %w", r.ID, rs.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// Count returns the number of rulesets in the catalog.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.queries.Get(ctx, "count-rule-sets", &n); err != nil {
		return 0, fmt.Errorf("failed to count rule sets: %w", err)
	}
	return n, nil
}
