package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

// TagStore is the SQLite-backed store.TagStore implementation.
type TagStore struct {
	db *sql.DB
}

func (t *TagStore) AddTag(ctx context.Context, ann *types.TagAnnotation) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO tag_annotations (tract_id, target_hash, tag_name, removed, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, ann.TractID, ann.TargetHash, ann.TagName, ann.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (t *TagStore) RemoveTag(ctx context.Context, tractID, targetHash, tagName string, at types.TagAnnotation) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO tag_annotations (tract_id, target_hash, tag_name, removed, created_at)
		VALUES (?, ?, ?, 1, ?)
	`, tractID, targetHash, tagName, at.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// GetTags unions a commit's immutable commit-time tags with the latest
// per-tag add/remove state from the mutable log (spec.md §4.5).
func (t *TagStore) GetTags(ctx context.Context, tractID, targetHash string, immutable []string) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT tag_name, removed, created_at FROM tag_annotations
		WHERE tract_id = ? AND target_hash = ?
		ORDER BY created_at ASC
	`, tractID, targetHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := map[string]bool{}
	for _, tag := range immutable {
		present[tag] = true
	}
	for rows.Next() {
		var name string
		var removed int
		var createdAt string
		if err := rows.Scan(&name, &removed, &createdAt); err != nil {
			return nil, err
		}
		present[name] = removed == 0
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []string
	for name, ok := range present {
		if ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func (t *TagStore) RegisterTag(ctx context.Context, tractID string, entry types.TagRegistryEntry) error {
	autoCreated := 0
	if entry.AutoCreated {
		autoCreated = 1
	}
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO tag_registry (tract_id, name, description, auto_created)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tract_id, name) DO UPDATE SET description = excluded.description
	`, tractID, entry.Name, entry.Description, autoCreated)
	return err
}

func (t *TagStore) IsRegistered(ctx context.Context, tractID, tagName string) (bool, error) {
	for _, base := range types.BaseTags {
		if base == tagName {
			return true, nil
		}
	}
	var count int
	if err := t.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tag_registry WHERE tract_id = ? AND name = ?
	`, tractID, tagName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
