package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

// SpawnStore is the SQLite-backed store.SpawnStore implementation.
type SpawnStore struct {
	db *sql.DB
}

func (s *SpawnStore) Save(ctx context.Context, sp *types.SpawnPointer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spawn_pointers (parent_tract_id, parent_commit_hash, child_tract_id, purpose, inheritance_mode, display_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sp.ParentTractID, sp.ParentCommit, sp.ChildTractID, sp.Purpose, string(sp.InheritanceMode), sp.DisplayName, sp.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func scanSpawn(scan func(dest ...any) error) (*types.SpawnPointer, error) {
	var sp types.SpawnPointer
	var createdAt string
	if err := scan(&sp.ParentTractID, &sp.ParentCommit, &sp.ChildTractID, &sp.Purpose, &sp.InheritanceMode, &sp.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	sp.CreatedAt = t
	return &sp, nil
}

func (s *SpawnStore) ListChildren(ctx context.Context, parentTractID string) ([]*types.SpawnPointer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT parent_tract_id, parent_commit_hash, child_tract_id, purpose, inheritance_mode, display_name, created_at
		FROM spawn_pointers WHERE parent_tract_id = ?
	`, parentTractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SpawnPointer
	for rows.Next() {
		sp, err := scanSpawn(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *SpawnStore) FindSpawnOrigin(ctx context.Context, childTractID string) (*types.SpawnPointer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT parent_tract_id, parent_commit_hash, child_tract_id, purpose, inheritance_mode, display_name, created_at
		FROM spawn_pointers WHERE child_tract_id = ?
	`, childTractID)
	sp, err := scanSpawn(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}
