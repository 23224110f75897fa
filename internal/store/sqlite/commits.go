package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// CommitStore is the SQLite-backed store.CommitStore implementation.
type CommitStore struct {
	db *sql.DB
}

const commitColumns = `commit_hash, tract_id, parent_hash, content_hash, content_type, operation,
	edit_target, message, token_count, metadata_json, generation_config_json, tags_json,
	created_at, sequence`

func scanCommit(scan func(dest ...any) error) (*types.Commit, error) {
	var c types.Commit
	var createdAt string
	var tagsJSON []byte
	if err := scan(&c.CommitHash, &c.TractID, &c.ParentHash, &c.ContentHash, &c.ContentType, &c.Operation,
		&c.EditTarget, &c.Message, &c.TokenCount, &c.MetadataJSON, &c.GenerationConfig, &tagsJSON,
		&createdAt, &c.Sequence); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = t
	if len(tagsJSON) > 0 {
		c.Tags = splitTags(tagsJSON)
	}
	return &c, nil
}

func (c *CommitStore) Get(ctx context.Context, hash string) (*types.Commit, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+commitColumns+` FROM commits WHERE commit_hash = ?`, hash)
	commit, err := scanCommit(row.Scan)
	if err != nil {
		return nil, wrapDBError("get commit", err, types.ErrCommitNotFound)
	}
	return commit, nil
}

func (c *CommitStore) Save(ctx context.Context, commit *types.Commit) error {
	tagsJSON := joinTags(commit.Tags)
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO commits (`+commitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, commit.CommitHash, commit.TractID, commit.ParentHash, commit.ContentHash, string(commit.ContentType), string(commit.Operation),
		commit.EditTarget, commit.Message, commit.TokenCount, commit.MetadataJSON, commit.GenerationConfig, tagsJSON,
		commit.CreatedAt.Format(time.RFC3339Nano), commit.Sequence)
	if err != nil {
		return wrapDBError("save commit", err, types.ErrCommitNotFound)
	}
	if commit.ParentHash != nil {
		if err := c.SaveParent(ctx, types.CommitParent{CommitHash: commit.CommitHash, ParentHash: *commit.ParentHash, Position: 0}); err != nil {
			return err
		}
	}
	return nil
}

// GetAncestors performs a first-parent-only walk in Go rather than a
// recursive CTE: the walk needs per-step opFilter evaluation, and the
// table is small enough per tract that a single AllForTract-style batch
// load plus in-process traversal keeps this store free of SQLite-version-
// specific recursive-CTE syntax (DESIGN.md).
func (c *CommitStore) GetAncestors(ctx context.Context, hash string, limit int, opFilter []types.Operation) ([]*types.Commit, error) {
	commit, err := c.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	all, err := c.AllForTract(ctx, commit.TractID)
	if err != nil {
		return nil, err
	}
	byHash := make(map[string]*types.Commit, len(all))
	for _, cm := range all {
		byHash[cm.CommitHash] = cm
	}

	allowed := map[types.Operation]bool{}
	for _, op := range opFilter {
		allowed[op] = true
	}

	var out []*types.Commit
	cur := hash
	for cur != "" {
		cm, ok := byHash[cur]
		if !ok {
			break
		}
		if len(allowed) == 0 || allowed[cm.Operation] {
			out = append(out, cm)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		if cm.ParentHash == nil {
			break
		}
		cur = *cm.ParentHash
	}
	return out, nil
}

func (c *CommitStore) GetByType(ctx context.Context, tractID string, contentType types.ContentType) ([]*types.Commit, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM commits WHERE tract_id = ? AND content_type = ? ORDER BY created_at
	`, tractID, string(contentType))
	if err != nil {
		return nil, wrapDBError("get commits by type", err, types.ErrCommitNotFound)
	}
	defer rows.Close()
	return scanCommitRows(rows)
}

func (c *CommitStore) GetChildren(ctx context.Context, hash string) ([]*types.Commit, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM commits WHERE parent_hash = ?
	`, hash)
	if err != nil {
		return nil, wrapDBError("get commit children", err, types.ErrCommitNotFound)
	}
	defer rows.Close()
	return scanCommitRows(rows)
}

func (c *CommitStore) GetByPrefix(ctx context.Context, tractID, prefix string) (*types.Commit, error) {
	if len(prefix) < 4 {
		return nil, types.ErrCommitNotFound
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM commits
		WHERE tract_id = ? AND commit_hash LIKE ? || '%'
		LIMIT 2
	`, tractID, prefix)
	if err != nil {
		return nil, wrapDBError("get commit by prefix", err, types.ErrCommitNotFound)
	}
	defer rows.Close()
	matches, err := scanCommitRows(rows)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, types.ErrCommitNotFound
	}
	if len(matches) > 1 {
		return nil, types.ErrAmbiguousPrefix
	}
	return matches[0], nil
}

// GetByConfig filters in Go after a tract-scoped load, since SQLite's
// json_extract requires a dialect-specific path syntax per operator and
// the condition set here supports both generation_config_json and
// metadata_json fallback (spec.md §4.2); see config_match.go.
func (c *CommitStore) GetByConfig(ctx context.Context, tractID string, conditions []store.ConfigCondition) ([]*types.Commit, error) {
	all, err := c.AllForTract(ctx, tractID)
	if err != nil {
		return nil, err
	}
	var out []*types.Commit
	for _, cm := range all {
		if matchesAllConditions(cm, conditions) {
			out = append(out, cm)
		}
	}
	return out, nil
}

func (c *CommitStore) GetEditsFor(ctx context.Context, targetHash string) ([]*types.Commit, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+commitColumns+` FROM commits
		WHERE operation = ? AND edit_target = ?
		ORDER BY created_at
	`, string(types.OpEdit), targetHash)
	if err != nil {
		return nil, wrapDBError("get edits for commit", err, types.ErrCommitNotFound)
	}
	defer rows.Close()
	return scanCommitRows(rows)
}

func (c *CommitStore) Delete(ctx context.Context, hash string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM commits WHERE commit_hash = ?`, hash)
	if err != nil {
		return wrapDBError("delete commit", err, types.ErrCommitNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrCommitNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE commits SET parent_hash = NULL WHERE parent_hash = ?`, hash); err != nil {
		return fmt.Errorf("nullify children parent_hash: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE commits SET edit_target = NULL WHERE edit_target = ?`, hash); err != nil {
		return fmt.Errorf("nullify children edit_target: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM commit_parents WHERE commit_hash = ?`, hash); err != nil {
		return fmt.Errorf("delete commit_parents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM priority_annotations WHERE target_hash = ?`, hash); err != nil {
		return fmt.Errorf("delete priority_annotations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_annotations WHERE target_hash = ?`, hash); err != nil {
		return fmt.Errorf("delete tag_annotations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE refs SET commit_hash = NULL WHERE commit_hash = ?`, hash); err != nil {
		return fmt.Errorf("clear refs: %w", err)
	}
	return tx.Commit()
}

func (c *CommitStore) AllForTract(ctx context.Context, tractID string) ([]*types.Commit, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+commitColumns+` FROM commits WHERE tract_id = ?`, tractID)
	if err != nil {
		return nil, wrapDBError("get all commits for tract", err, types.ErrCommitNotFound)
	}
	defer rows.Close()
	return scanCommitRows(rows)
}

func (c *CommitStore) AllParents(ctx context.Context, tractID string) ([]types.CommitParent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT cp.commit_hash, cp.parent_hash, cp.position
		FROM commit_parents cp
		JOIN commits c ON c.commit_hash = cp.commit_hash
		WHERE c.tract_id = ?
	`, tractID)
	if err != nil {
		return nil, wrapDBError("get all commit parents for tract", err, types.ErrCommitNotFound)
	}
	defer rows.Close()

	var out []types.CommitParent
	for rows.Next() {
		var p types.CommitParent
		if err := rows.Scan(&p.CommitHash, &p.ParentHash, &p.Position); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *CommitStore) SaveParent(ctx context.Context, parent types.CommitParent) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO commit_parents (commit_hash, parent_hash, position)
		VALUES (?, ?, ?)
		ON CONFLICT(commit_hash, position) DO UPDATE SET parent_hash = excluded.parent_hash
	`, parent.CommitHash, parent.ParentHash, parent.Position)
	if err != nil {
		return wrapDBError("save commit parent", err, types.ErrCommitNotFound)
	}
	return nil
}

func (c *CommitStore) NextSequence(ctx context.Context, tractID string) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sequences (tract_id, value) VALUES (?, 0)
		ON CONFLICT(tract_id) DO NOTHING
	`, tractID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sequences SET value = value + 1 WHERE tract_id = ?`, tractID); err != nil {
		return 0, err
	}
	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM sequences WHERE tract_id = ?`, tractID).Scan(&next); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

func scanCommitRows(rows *sql.Rows) ([]*types.Commit, error) {
	var out []*types.Commit
	for rows.Next() {
		cm, err := scanCommit(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}
