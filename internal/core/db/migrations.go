package db

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	embeddedmigrations "github.com/solatis/rulebook/migrations"
)

// MigrationStatus describes one embedded migration and whether it has run.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one embedded .sql file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// appliedRecord is a row of the migrations tracking table.
type appliedRecord struct {
	Checksum    string
	AppliedAt   *time.Time
	ExecutionMs int64
}

// Migrator applies the embedded catalog schema for one database.
type Migrator struct {
	db         *sqlx.DB
	migrations []migration
	logger     zerolog.Logger
}

// NewMigrator loads the migration set matching the database driver.
func NewMigrator(db *sqlx.DB, logger zerolog.Logger) (*Migrator, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, err
	}
	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return &Migrator{db: db, migrations: migrations, logger: logger}, nil
}

// Up runs every pending migration in filename order and returns how many ran.
// Applied migrations are verified against their embedded checksum first; a
// mismatch aborts before anything is executed.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	embedded := make(map[string]string, len(m.migrations))
	for _, mig := range m.migrations {
		embedded[mig.ID] = mig.Checksum
	}
	for id, rec := range applied {
		want, ok := embedded[id]
		if !ok {
			return 0, fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if rec.Checksum != want {
			return 0, fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, rec.Checksum)
		}
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.ID]; ok {
			continue
		}
		elapsed, err := m.run(ctx, mig)
		if err != nil {
			return count, err
		}
		m.logger.Info().
			Str("migration", mig.ID).
			Dur("elapsed", elapsed).
			Msg("migration applied")
		count++
	}
	return count, nil
}

// Status lists every embedded migration, applied or pending.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		status := MigrationStatus{ID: mig.ID, Checksum: mig.Checksum}
		if rec, ok := applied[mig.ID]; ok {
			status.Checksum = rec.Checksum
			status.Applied = true
			status.AppliedAt = rec.AppliedAt
			status.ExecutionMs = rec.ExecutionMs
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// run executes one migration and records it in the same transaction.
func (m *Migrator) run(ctx context.Context, mig migration) (time.Duration, error) {
	start := time.Now()

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for migration %s: %w", mig.ID, err)
	}
	defer tx.Rollback()

	for i, stmt := range splitStatements(mig.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("migration %s: statement %d failed: %w", mig.ID, i+1, err)
		}
	}

	elapsed := time.Since(start)
	var appliedAt any = time.Now().UTC()
	if m.db.DriverName() == "sqlite3" {
		appliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	insert := tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)")
	if _, err := tx.ExecContext(ctx, insert, mig.ID, mig.Checksum, appliedAt, elapsed.Milliseconds()); err != nil {
		return 0, fmt.Errorf("failed to record migration %s: %w", mig.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migration %s: %w", mig.ID, err)
	}
	return elapsed, nil
}

// applied ensures the tracking table exists and reads it.
func (m *Migrator) applied(ctx context.Context) (map[string]appliedRecord, error) {
	if _, err := m.db.ExecContext(ctx, trackingTableDDL(m.db.DriverName())); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.db.QueryxContext(ctx, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]appliedRecord)
	for rows.Next() {
		var (
			id        string
			rec       appliedRecord
			appliedAt any
		)
		if err := rows.Scan(&id, &rec.Checksum, &appliedAt, &rec.ExecutionMs); err != nil {
			return nil, err
		}
		if rec.AppliedAt, err = parseAppliedAt(appliedAt); err != nil {
			return nil, fmt.Errorf("migration %s: %w", id, err)
		}
		applied[id] = rec
	}
	return applied, rows.Err()
}

// MigrateUp is shorthand for NewMigrator followed by Up.
func MigrateUp(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) (int, error) {
	m, err := NewMigrator(db, logger)
	if err != nil {
		return 0, err
	}
	return m.Up(ctx)
}

// migrationSource selects the embedded migration set for a driver.
func migrationSource(driver string) (embed.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// trackingTableDDL must stay in sync with the migrations table in 001_catalog.sql.
func trackingTableDDL(driver string) string {
	if driver == "sqlite3" {
		return `CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			execution_ms INTEGER NOT NULL,
			CHECK (applied_at LIKE '____-__-__T__:__:__Z')
		)`
	}
	return `CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
		execution_ms INTEGER NOT NULL
	)`
}

// parseMigrationFiles reads every .sql file under dir, sorted by name.
func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fsys.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, migration{
			ID:       e.Name(),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

// parseAppliedAt normalizes applied_at across drivers.
// SQLite stores RFC 3339 text, PostgreSQL returns a timestamp.
func parseAppliedAt(v any) (*time.Time, error) {
	var t time.Time
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = val
	case string:
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, fmt.Errorf("invalid applied_at %q: %w", val, err)
		}
		t = parsed
	case []byte:
		return parseAppliedAt(string(val))
	default:
		return nil, fmt.Errorf("unexpected applied_at type %T", v)
	}
	t = t.UTC()
	return &t, nil
}

// splitStatements strips line comments and splits on semicolons.
// lib/pq doesn't support multiple statements in a single Exec.
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var statements []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
