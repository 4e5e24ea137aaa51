package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/rulebook/internal/types"
)

func openTestCatalog(t *testing.T) (*sqlx.DB, *Catalog) {
	t.Helper()

	url := "sqlite://" + filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = MigrateUp(context.Background(), db, zerolog.Nop())
	require.NoError(t, err)

	catalog, err := NewCatalog(db)
	require.NoError(t, err)
	return db, catalog
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"unsupported scheme", "mysql://localhost/rules"},
		{"no scheme", "catalog.db"},
		{"empty sqlite path", "sqlite://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.url)
			assert.Error(t, err)
		})
	}
}

func TestIsDatabaseURL(t *testing.T) {
	assert.True(t, IsDatabaseURL("sqlite:///tmp/catalog.db"))
	assert.True(t, IsDatabaseURL("sqlite://catalog.db"))
	assert.True(t, IsDatabaseURL("postgres://u:p@localhost:5432/rules?sslmode=disable"))
	assert.True(t, IsDatabaseURL("postgresql://localhost/rules"))
	assert.False(t, IsDatabaseURL("https://example.com/rule_sets.json"))
	assert.False(t, IsDatabaseURL("./rule_sets.json"))
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db, _ := openTestCatalog(t)

	m, err := NewMigrator(db, zerolog.Nop())
	require.NoError(t, err)
	n, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "001_catalog.sql", statuses[0].ID)
	assert.True(t, statuses[0].Applied)
	require.NotNil(t, statuses[0].AppliedAt)
	assert.Len(t, statuses[0].Checksum, 64)
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	db, _ := openTestCatalog(t)

	_, err := db.Exec("UPDATE migrations SET checksum = 'tampered' WHERE migration_id = '001_catalog.sql'")
	require.NoError(t, err)

	_, err = MigrateUp(context.Background(), db, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestMigrateStatus_Pending(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "fresh.db")
	db, err := Open(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()

	m, err := NewMigrator(db, zerolog.Nop())
	require.NoError(t, err)
	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Applied)
	assert.Nil(t, statuses[0].AppliedAt)

	n, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	statuses, err = m.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header; with a semicolon
CREATE TABLE a (id INTEGER);
  -- indented comment
CREATE TABLE b (id INTEGER);

`
	assert.Equal(t, []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"}, splitStatements(sql))
}

func TestCatalog_RoundTrip(t *testing.T) {
	_, catalog := openTestCatalog(t)
	ctx := context.Background()

	ruleSets := []types.RuleSet{
		{ID: 7, Name: "Venous", Rules: []types.Rule{
			{ID: 3, Measurement: "GSV reflux time", Comparator: types.ComparatorGTE, ComparedValue: 0.5, UnitName: "s", FindingName: "Incompetent", Action: types.ActionReflux},
			{ID: 1, Measurement: "Thrombus", Comparator: types.ComparatorNotPresent, ComparedValue: types.NotApplicable, FindingName: "Clear", Action: types.ActionNormal},
		}},
		{ID: 2, Name: "Empty", Rules: []types.Rule{}},
		{ID: 5, Name: "Custom action", Rules: []types.Rule{
			{ID: 1, Measurement: "PSV", Comparator: types.ComparatorLT, ComparedValue: 125, UnitName: "cm/s", FindingName: "Mild", Action: "Review"},
		}},
	}

	require.NoError(t, catalog.ReplaceRuleSets(ctx, ruleSets))

	loaded, err := catalog.LoadRuleSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, ruleSets, loaded)

	n, err := catalog.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCatalog_ReplaceOverwrites(t *testing.T) {
	_, catalog := openTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceRuleSets(ctx, []types.RuleSet{{ID: 1, Name: "old", Rules: []types.Rule{{ID: 1}}}}))
	require.NoError(t, catalog.ReplaceRuleSets(ctx, []types.RuleSet{{ID: 2, Name: "new", Rules: []types.Rule{}}}))

	loaded, err := catalog.LoadRuleSets(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].Name)
}

func TestCatalog_ReplaceRollsBackOnDuplicateID(t *testing.T) {
	_, catalog := openTestCatalog(t)
	ctx := context.Background()

	original := []types.RuleSet{{ID: 1, Name: "kept", Rules: []types.Rule{}}}
	require.NoError(t, catalog.ReplaceRuleSets(ctx, original))

	err := catalog.ReplaceRuleSets(ctx, []types.RuleSet{{ID: 9, Name: "a"}, {ID: 9, Name: "b"}})
	require.Error(t, err)

	loaded, err := catalog.LoadRuleSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestCatalog_Empty(t *testing.T) {
	_, catalog := openTestCatalog(t)

	loaded, err := catalog.LoadRuleSets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
