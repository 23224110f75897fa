package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

// OperationLogStore is the SQLite-backed store.OperationLogStore
// implementation.
type OperationLogStore struct {
	db *sql.DB
}

func (o *OperationLogStore) SaveEvent(ctx context.Context, event *types.OperationEvent, commits []types.OperationEventCommit) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operation_events (event_id, tract_id, event_type, branch_name, created_at, original_tokens, compressed_tokens, params_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.EventID, event.TractID, string(event.EventType), event.BranchName, event.CreatedAt.Format(time.RFC3339Nano),
		event.OriginalTokens, event.CompressedTokens, event.ParamsJSON)
	if err != nil {
		return err
	}
	for _, c := range commits {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO operation_event_commits (event_id, commit_hash, role, position)
			VALUES (?, ?, ?, ?)
		`, c.EventID, c.CommitHash, string(c.Role), c.Position); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (o *OperationLogStore) GetEvent(ctx context.Context, eventID string) (*types.OperationEvent, []types.OperationEventCommit, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT event_id, tract_id, event_type, branch_name, created_at, original_tokens, compressed_tokens, params_json
		FROM operation_events WHERE event_id = ?
	`, eventID)

	var event types.OperationEvent
	var createdAt string
	if err := row.Scan(&event.EventID, &event.TractID, &event.EventType, &event.BranchName, &createdAt,
		&event.OriginalTokens, &event.CompressedTokens, &event.ParamsJSON); err != nil {
		return nil, nil, wrapDBError("get operation event", err, types.ErrEventNotFound)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, nil, err
	}
	event.CreatedAt = t

	rows, err := o.db.QueryContext(ctx, `
		SELECT event_id, commit_hash, role, position FROM operation_event_commits
		WHERE event_id = ? ORDER BY role, position
	`, eventID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var commits []types.OperationEventCommit
	for rows.Next() {
		var c types.OperationEventCommit
		if err := rows.Scan(&c.EventID, &c.CommitHash, &c.Role, &c.Position); err != nil {
			return nil, nil, err
		}
		commits = append(commits, c)
	}
	return &event, commits, rows.Err()
}

func (o *OperationLogStore) GetEventsForCommit(ctx context.Context, commitHash string) ([]*types.OperationEvent, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT e.event_id, e.tract_id, e.event_type, e.branch_name, e.created_at, e.original_tokens, e.compressed_tokens, e.params_json
		FROM operation_events e
		JOIN operation_event_commits ec ON ec.event_id = e.event_id
		WHERE ec.commit_hash = ?
		GROUP BY e.event_id
	`, commitHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.OperationEvent
	for rows.Next() {
		var event types.OperationEvent
		var createdAt string
		if err := rows.Scan(&event.EventID, &event.TractID, &event.EventType, &event.BranchName, &createdAt,
			&event.OriginalTokens, &event.CompressedTokens, &event.ParamsJSON); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		event.CreatedAt = t
		out = append(out, &event)
	}
	return out, rows.Err()
}
