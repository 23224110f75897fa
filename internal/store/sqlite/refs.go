package sqlite

import (
	"context"
	"database/sql"

	"github.com/tract-dev/tract/internal/types"
)

// RefStore is the SQLite-backed store.RefStore implementation.
type RefStore struct {
	db *sql.DB
}

func scanRef(scan func(dest ...any) error) (*types.Ref, error) {
	var ref types.Ref
	var commitHash, symbolicTarget sql.NullString
	if err := scan(&ref.TractID, &ref.RefName, &commitHash, &symbolicTarget); err != nil {
		return nil, err
	}
	if commitHash.Valid {
		ref.CommitHash = &commitHash.String
	}
	if symbolicTarget.Valid {
		ref.SymbolicTarget = &symbolicTarget.String
	}
	return &ref, nil
}

func (r *RefStore) Get(ctx context.Context, tractID, refName string) (*types.Ref, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tract_id, ref_name, commit_hash, symbolic_target FROM refs
		WHERE tract_id = ? AND ref_name = ?
	`, tractID, refName)
	ref, err := scanRef(row.Scan)
	if err != nil {
		return nil, wrapDBError("get ref", err, types.ErrRefNotFound)
	}
	return ref, nil
}

func (r *RefStore) GetHead(ctx context.Context, tractID string) (*types.Ref, error) {
	return r.Get(ctx, tractID, "HEAD")
}

func (r *RefStore) UpdateHead(ctx context.Context, tractID, newCommitHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT commit_hash, symbolic_target FROM refs WHERE tract_id = ? AND ref_name = 'HEAD'
	`, tractID)
	var commitHash, symbolicTarget sql.NullString
	err = row.Scan(&commitHash, &symbolicTarget)
	switch {
	case err == sql.ErrNoRows:
		main := types.BranchRefName("main")
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO refs (tract_id, ref_name, commit_hash, symbolic_target) VALUES (?, ?, ?, NULL)
		`, tractID, main, newCommitHash); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO refs (tract_id, ref_name, commit_hash, symbolic_target) VALUES (?, 'HEAD', NULL, ?)
		`, tractID, main); err != nil {
			return err
		}
	case err != nil:
		return err
	case symbolicTarget.Valid:
		if _, err := tx.ExecContext(ctx, `
			UPDATE refs SET commit_hash = ? WHERE tract_id = ? AND ref_name = ?
		`, newCommitHash, tractID, symbolicTarget.String); err != nil {
			return err
		}
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE refs SET commit_hash = ? WHERE tract_id = ? AND ref_name = 'HEAD'
		`, newCommitHash, tractID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RefStore) AttachHead(ctx context.Context, tractID, branch string) error {
	branchRef := types.BranchRefName(branch)
	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refs WHERE tract_id = ? AND ref_name = ?
	`, tractID, branchRef).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return types.ErrRefNotFound
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refs (tract_id, ref_name, commit_hash, symbolic_target) VALUES (?, 'HEAD', NULL, ?)
		ON CONFLICT(tract_id, ref_name) DO UPDATE SET commit_hash = NULL, symbolic_target = excluded.symbolic_target
	`, tractID, branchRef)
	return err
}

func (r *RefStore) DetachHead(ctx context.Context, tractID, commitHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refs (tract_id, ref_name, commit_hash, symbolic_target) VALUES (?, 'HEAD', ?, NULL)
		ON CONFLICT(tract_id, ref_name) DO UPDATE SET commit_hash = excluded.commit_hash, symbolic_target = NULL
	`, tractID, commitHash)
	return err
}

func (r *RefStore) SetRef(ctx context.Context, ref *types.Ref) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refs (tract_id, ref_name, commit_hash, symbolic_target) VALUES (?, ?, ?, ?)
		ON CONFLICT(tract_id, ref_name) DO UPDATE SET commit_hash = excluded.commit_hash, symbolic_target = excluded.symbolic_target
	`, ref.TractID, ref.RefName, ref.CommitHash, ref.SymbolicTarget)
	return err
}

func (r *RefStore) DeleteRef(ctx context.Context, tractID, refName string, force bool) error {
	if !force {
		head, err := r.GetHead(ctx, tractID)
		if err == nil && head.Attached() && *head.SymbolicTarget == refName {
			return types.ErrRefIsCheckedOut
		}
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM refs WHERE tract_id = ? AND ref_name = ?`, tractID, refName)
	return err
}

func (r *RefStore) ListBranches(ctx context.Context, tractID string) ([]*types.Ref, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tract_id, ref_name, commit_hash, symbolic_target FROM refs
		WHERE tract_id = ? AND ref_name != 'HEAD'
	`, tractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Ref
	for rows.Next() {
		ref, err := scanRef(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
