// Package sqlite is the persisted Store backend (spec.md §6): a single
// SQLite file accessed through database/sql, guarded by the single-writer
// lockfile discipline in internal/lockfile. The driver is registered via
// blank import of the pure-Go ncruces/go-sqlite3 packages, so opening a
// tract never needs cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tract-dev/tract/internal/lockfile"
	"github.com/tract-dev/tract/internal/store"
)

// Store is the SQLite-backed store.Store implementation.
type Store struct {
	db       *sql.DB
	lockFile *os.File
}

// Open opens (creating if absent) the tract database at path, applies
// pragmas for WAL concurrency, and runs every registered migration.
// SQLite serializes writers internally; MaxOpenConns(1) keeps every
// PRAGMA and migration statement on the same connection so they actually
// take effect (dsn-level pragmas apply per-connection, not per-database).
//
// Open also takes an exclusive, non-blocking flock on path+".lock",
// enforcing spec.md §5's "one writer per database connection" contract
// at the process level: a second Open against the same file fails fast
// with lockfile.ErrLocked instead of silently interleaving writes.
func Open(ctx context.Context, path string) (*Store, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lockfile %s: %w", lockPath, err)
	}
	if err := lockfile.FlockExclusiveNonBlocking(lockFile); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("lock %s: %w", lockPath, lockfile.ErrLocked)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	s := &Store{db: db, lockFile: lockFile}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		lockfile.FlockUnlock(lockFile)
		lockFile.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close releases the database connection and the single-writer lockfile.
func (s *Store) Close() error {
	err := s.db.Close()
	lockfile.FlockUnlock(s.lockFile)
	s.lockFile.Close()
	return err
}

func (s *Store) Blobs() store.BlobStore                { return &BlobStore{db: s.db} }
func (s *Store) Commits() store.CommitStore            { return &CommitStore{db: s.db} }
func (s *Store) Refs() store.RefStore                  { return &RefStore{db: s.db} }
func (s *Store) Annotations() store.AnnotationStore    { return &AnnotationStore{db: s.db} }
func (s *Store) Tags() store.TagStore                  { return &TagStore{db: s.db} }
func (s *Store) OperationLog() store.OperationLogStore { return &OperationLogStore{db: s.db} }
func (s *Store) Spawns() store.SpawnStore              { return &SpawnStore{db: s.db} }
func (s *Store) Metadata() store.MetadataStore         { return &MetadataStore{db: s.db} }

var _ store.Store = (*Store)(nil)
