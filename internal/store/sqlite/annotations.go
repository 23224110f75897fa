package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

// AnnotationStore is the SQLite-backed store.AnnotationStore implementation.
type AnnotationStore struct {
	db *sql.DB
}

func (a *AnnotationStore) Append(ctx context.Context, ann *types.PriorityAnnotation) error {
	var retentionJSON []byte
	if ann.Retention != nil {
		b, err := json.Marshal(ann.Retention)
		if err != nil {
			return err
		}
		retentionJSON = b
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO priority_annotations (tract_id, target_hash, priority, retention_json, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ann.TractID, ann.TargetHash, string(ann.Priority), retentionJSON, ann.Reason, ann.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func scanAnnotation(scan func(dest ...any) error) (*types.PriorityAnnotation, error) {
	var ann types.PriorityAnnotation
	var retentionJSON []byte
	var createdAt string
	if err := scan(&ann.ID, &ann.TractID, &ann.TargetHash, &ann.Priority, &retentionJSON, &ann.Reason, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	ann.CreatedAt = t
	if len(retentionJSON) > 0 {
		var rc types.RetentionCriteria
		if err := json.Unmarshal(retentionJSON, &rc); err != nil {
			return nil, err
		}
		ann.Retention = &rc
	}
	return &ann, nil
}

func (a *AnnotationStore) GetLatest(ctx context.Context, tractID, targetHash string) (*types.PriorityAnnotation, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, tract_id, target_hash, priority, retention_json, reason, created_at
		FROM priority_annotations
		WHERE tract_id = ? AND target_hash = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, tractID, targetHash)
	ann, err := scanAnnotation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ann, nil
}

// BatchGetLatest loads every annotation for the requested targets in one
// query and reduces to the latest per target in Go, avoiding one
// round-trip per commit in an EDIT chain (spec.md §4.4).
func (a *AnnotationStore) BatchGetLatest(ctx context.Context, tractID string, targets []string) (map[string]*types.PriorityAnnotation, error) {
	out := map[string]*types.PriorityAnnotation{}
	if len(targets) == 0 {
		return out, nil
	}
	placeholders := make([]byte, 0, len(targets)*2)
	args := make([]any, 0, len(targets)+1)
	args = append(args, tractID)
	for i, t := range targets {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, t)
	}
	query := `
		SELECT id, tract_id, target_hash, priority, retention_json, reason, created_at
		FROM priority_annotations
		WHERE tract_id = ? AND target_hash IN (` + string(placeholders) + `)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		ann, err := scanAnnotation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[ann.TargetHash] = ann // later rows (later created_at) overwrite
	}
	return out, rows.Err()
}
