package sqlite

import (
	"context"
	"database/sql"
)

// MetadataStore is the SQLite-backed store.MetadataStore implementation.
type MetadataStore struct {
	db *sql.DB
}

func (m *MetadataStore) Get(ctx context.Context, tractID, key string) (string, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `
		SELECT value FROM tract_metadata WHERE tract_id = ? AND key = ?
	`, tractID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (m *MetadataStore) Set(ctx context.Context, tractID, key, value string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO tract_metadata (tract_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(tract_id, key) DO UPDATE SET value = excluded.value
	`, tractID, key, value)
	return err
}
