package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{Version: "1.0.0", Up: migrationV1Up, Down: migrationV1Down},
	{Version: "1.1.0", Up: migrationV11Up, Down: migrationV11Down},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Review comments with up to three embeddings (little-endian float32 blobs)
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    pr_number INTEGER NOT NULL DEFAULT 0,
    repository TEXT NOT NULL DEFAULT '',
    project_path TEXT NOT NULL,
    kind TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    comment_embedding BLOB,
    code_embedding BLOB,
    combined_embedding BLOB,
    file_path TEXT NOT NULL DEFAULT '',
    line_number INTEGER NOT NULL DEFAULT 0,
    start_line INTEGER NOT NULL DEFAULT 0,
    end_line INTEGER NOT NULL DEFAULT 0,
    original_code TEXT NOT NULL DEFAULT '',
    suggested_code TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    created_at INTEGER,
    updated_at INTEGER,
    category TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL DEFAULT '',
    pattern_tags TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_comments_project ON comments(project_path);
CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(project_path, author);
CREATE INDEX IF NOT EXISTS idx_comments_file ON comments(project_path, file_path);
CREATE INDEX IF NOT EXISTS idx_comments_kind ON comments(project_path, kind);
`

const migrationV1Down = `
DROP INDEX IF EXISTS idx_comments_kind;
DROP INDEX IF EXISTS idx_comments_file;
DROP INDEX IF EXISTS idx_comments_author;
DROP INDEX IF EXISTS idx_comments_project;
DROP TABLE IF EXISTS comments;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
CREATE INDEX IF NOT EXISTS idx_comments_created ON comments(project_path, created_at);
CREATE INDEX IF NOT EXISTS idx_comments_pr ON comments(project_path, repository, pr_number);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_comments_pr;
DROP INDEX IF EXISTS idx_comments_created;
`

// SchemaVersion returns the most recently applied migration, or 0.0.0
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var name string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations, each in its own transaction
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		version, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(version) {
			continue
		}

		if err := runInTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
			}
			return nil
		}); err != nil {
			return err
		}

		current = version
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for i := len(AllMigrations) - 1; i >= 0; i-- {
		m := AllMigrations[i]
		if !semver.MustParse(m.Version).Equal(current) {
			continue
		}

		if _, err := db.ExecContext(ctx, m.Down); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", m.Version, err)
		}
		// The first migration drops schema_version itself
		if i == 0 {
			return nil
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", m.Version); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", m.Version, err)
		}
		return nil
	}

	return fmt.Errorf("no migration to roll back from %s", current)
}

func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
