package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one named, idempotent schema step (DESIGN.md: the teacher's
// ordered-list-of-named-funcs migration shape, internal/storage/sqlite
// in the pack).
type migration struct {
	name string
	fn   func(ctx context.Context, db *sql.DB) error
}

var migrationsList = []migration{
	{"001_initial_schema", migrateInitialSchema},
	{"002_commit_config_indexes", migrateCommitConfigIndexes},
}

// runMigrations executes every registered migration in order. Each is
// idempotent on its own terms (CREATE ... IF NOT EXISTS, or a
// PRAGMA index_list existence check before CREATE INDEX) so re-running the
// full list against an already-migrated database is always a no-op.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrationsList {
		var already int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.name).Scan(&already); err != nil {
			return fmt.Errorf("check migration %s: %w", m.name, err)
		}
		if already > 0 {
			continue
		}
		if err := m.fn(ctx, db); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (name, applied_at) VALUES (?, datetime('now'))`, m.name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
	}
	return nil
}

func migrateInitialSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			content_hash TEXT PRIMARY KEY,
			payload_json BLOB NOT NULL,
			byte_size INTEGER NOT NULL,
			token_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS commits (
			commit_hash TEXT PRIMARY KEY,
			tract_id TEXT NOT NULL,
			parent_hash TEXT,
			content_hash TEXT NOT NULL,
			content_type TEXT NOT NULL,
			operation TEXT NOT NULL,
			edit_target TEXT,
			message TEXT,
			token_count INTEGER NOT NULL,
			metadata_json BLOB,
			generation_config_json BLOB,
			tags_json BLOB,
			created_at TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			FOREIGN KEY (content_hash) REFERENCES blobs(content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_tract ON commits(tract_id)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_parent ON commits(parent_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_tract_created ON commits(tract_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_tract_type ON commits(tract_id, content_type)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_edit_target ON commits(edit_target)`,

		`CREATE TABLE IF NOT EXISTS commit_parents (
			commit_hash TEXT NOT NULL,
			parent_hash TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (commit_hash, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commit_parents_parent ON commit_parents(parent_hash)`,

		`CREATE TABLE IF NOT EXISTS refs (
			tract_id TEXT NOT NULL,
			ref_name TEXT NOT NULL,
			commit_hash TEXT,
			symbolic_target TEXT,
			PRIMARY KEY (tract_id, ref_name)
		)`,

		`CREATE TABLE IF NOT EXISTS priority_annotations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tract_id TEXT NOT NULL,
			target_hash TEXT NOT NULL,
			priority TEXT NOT NULL,
			retention_json BLOB,
			reason TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_priority_annotations_target ON priority_annotations(tract_id, target_hash, created_at)`,

		`CREATE TABLE IF NOT EXISTS tag_annotations (
			tract_id TEXT NOT NULL,
			target_hash TEXT NOT NULL,
			tag_name TEXT NOT NULL,
			removed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tag_annotations_target ON tag_annotations(tract_id, target_hash)`,

		`CREATE TABLE IF NOT EXISTS tag_registry (
			tract_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			auto_created INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tract_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS operation_events (
			event_id TEXT PRIMARY KEY,
			tract_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			branch_name TEXT,
			created_at TEXT NOT NULL,
			original_tokens INTEGER NOT NULL DEFAULT 0,
			compressed_tokens INTEGER NOT NULL DEFAULT 0,
			params_json BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS operation_event_commits (
			event_id TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (event_id, commit_hash, role)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operation_event_commits_commit ON operation_event_commits(commit_hash)`,

		`CREATE TABLE IF NOT EXISTS spawn_pointers (
			parent_tract_id TEXT NOT NULL,
			parent_commit_hash TEXT,
			child_tract_id TEXT PRIMARY KEY,
			purpose TEXT,
			inheritance_mode TEXT NOT NULL,
			display_name TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spawn_pointers_parent ON spawn_pointers(parent_tract_id)`,

		`CREATE TABLE IF NOT EXISTS tract_metadata (
			tract_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (tract_id, key)
		)`,

		`CREATE TABLE IF NOT EXISTS sequences (
			tract_id TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// migrateCommitConfigIndexes adds an index on commits(tract_id,
// operation), checking PRAGMA index_list for it before adding anything
// (spec.md §4.2:
// "the query planner wants an index on tract_id for the common case").
func migrateCommitConfigIndexes(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA index_list(commits)`)
	if err != nil {
		return fmt.Errorf("list commits indexes: %w", err)
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var seq int
		var name string
		var unique int
		var origin, partial string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return fmt.Errorf("scan index info: %w", err)
		}
		if name == "idx_commits_tract_operation" {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read index list: %w", err)
	}
	if exists {
		return nil
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX idx_commits_tract_operation ON commits(tract_id, operation)`)
	if err != nil {
		return fmt.Errorf("create idx_commits_tract_operation: %w", err)
	}
	return nil
}
