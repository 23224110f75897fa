package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tract-dev/tract/internal/types"
)

// BlobStore is the SQLite-backed store.BlobStore implementation.
type BlobStore struct {
	db *sql.DB
}

func (b *BlobStore) Get(ctx context.Context, hash string) (*types.Blob, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT content_hash, payload_json, byte_size, token_count, created_at
		FROM blobs WHERE content_hash = ?
	`, hash)

	var blob types.Blob
	var createdAt string
	if err := row.Scan(&blob.ContentHash, &blob.PayloadJSON, &blob.ByteSize, &blob.TokenCount, &createdAt); err != nil {
		return nil, wrapDBError("get blob", err, types.ErrBlobNotFound)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = t
	return &blob, nil
}

func (b *BlobStore) SaveIfAbsent(ctx context.Context, blob *types.Blob) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO blobs (content_hash, payload_json, byte_size, token_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`, blob.ContentHash, blob.PayloadJSON, blob.ByteSize, blob.TokenCount, blob.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return wrapDBError("save blob", err, types.ErrBlobNotFound)
	}
	return nil
}

func (b *BlobStore) DeleteIfOrphaned(ctx context.Context, hash string) (bool, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits WHERE content_hash = ?`, hash).Scan(&count); err != nil {
		return false, wrapDBError("check blob references", err, types.ErrBlobNotFound)
	}
	if count > 0 {
		return false, nil
	}
	res, err := b.db.ExecContext(ctx, `DELETE FROM blobs WHERE content_hash = ?`, hash)
	if err != nil {
		return false, wrapDBError("delete blob", err, types.ErrBlobNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
