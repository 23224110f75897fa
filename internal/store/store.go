// Package store defines the storage interfaces for Tract's content-addressed
// blob/commit/ref/annotation/tag/operation-event model (spec.md §4.1–§4.5,
// §4.13). Concrete backends live in store/sqlite (the persisted,
// single-writer store, spec.md §6) and store/memory (an in-process test
// double mirroring the teacher's own internal/storage/memory package).
package store

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// ConfigCondition is one conjunct of a get_by_config query (spec.md §4.2):
// (json_path, operator, value).
type ConfigCondition struct {
	JSONPath string
	Operator string // =, !=, <, <=, >, >=, in, not in, between, not between
	Value    any
}

// BlobStore is the content-addressed payload store (spec.md §4.1).
type BlobStore interface {
	Get(ctx context.Context, hash string) (*types.Blob, error)
	SaveIfAbsent(ctx context.Context, blob *types.Blob) error
	// DeleteIfOrphaned deletes the blob and returns true, or returns false
	// (without error) if any commit still references it.
	DeleteIfOrphaned(ctx context.Context, hash string) (bool, error)
}

// CommitStore is the append-only DAG node store (spec.md §4.2).
type CommitStore interface {
	Get(ctx context.Context, hash string) (*types.Commit, error)
	Save(ctx context.Context, commit *types.Commit) error
	// GetAncestors performs a first-parent-only walk from hash. If opFilter
	// is non-empty the walk continues through non-matching commits but only
	// returns ones whose Operation is in opFilter.
	GetAncestors(ctx context.Context, hash string, limit int, opFilter []types.Operation) ([]*types.Commit, error)
	GetByType(ctx context.Context, tractID string, contentType types.ContentType) ([]*types.Commit, error)
	GetChildren(ctx context.Context, hash string) ([]*types.Commit, error)
	// GetByPrefix resolves a >=4 hex char prefix to one commit, returning
	// ErrAmbiguousPrefix if more than one commit matches.
	GetByPrefix(ctx context.Context, tractID, prefix string) (*types.Commit, error)
	GetByConfig(ctx context.Context, tractID string, conditions []ConfigCondition) ([]*types.Commit, error)
	GetEditsFor(ctx context.Context, targetHash string) ([]*types.Commit, error)
	// Delete nullifies foreign references (children's ParentHash/EditTarget)
	// before removing the commit row, and cascades parent-table, tag,
	// annotation, and ref rows pointing at it (spec.md §4.2).
	Delete(ctx context.Context, hash string) error

	// AllForTract batch-loads every commit belonging to a tract, the
	// "batch-load once, traverse in-process" half of GetAncestors' two-query
	// contract (spec.md §4.2) and the backing data for dag.GetAllAncestors.
	AllForTract(ctx context.Context, tractID string) ([]*types.Commit, error)
	// AllParents batch-loads every multi-parent edge for a tract.
	AllParents(ctx context.Context, tractID string) ([]types.CommitParent, error)
	SaveParent(ctx context.Context, parent types.CommitParent) error

	// NextSequence returns the next monotonic per-tract sequence number
	// used in the commit hash input (DESIGN.md Open Question #1).
	NextSequence(ctx context.Context, tractID string) (int64, error)
}

// RefStore is the attached-HEAD ref/branch model (spec.md §4.3).
type RefStore interface {
	Get(ctx context.Context, tractID, refName string) (*types.Ref, error)
	GetHead(ctx context.Context, tractID string) (*types.Ref, error)
	// UpdateHead implements spec.md §4.3's three-way choice: create
	// HEAD-symbolic→main + main ref on the first commit; else update the
	// target branch of a symbolic HEAD; else update a detached HEAD.
	UpdateHead(ctx context.Context, tractID, newCommitHash string) error
	AttachHead(ctx context.Context, tractID, branch string) error
	DetachHead(ctx context.Context, tractID, commitHash string) error
	SetRef(ctx context.Context, ref *types.Ref) error
	DeleteRef(ctx context.Context, tractID, refName string, force bool) error
	ListBranches(ctx context.Context, tractID string) ([]*types.Ref, error)
}

// AnnotationStore is the append-only priority-annotation log (spec.md §4.4).
type AnnotationStore interface {
	Append(ctx context.Context, ann *types.PriorityAnnotation) error
	GetLatest(ctx context.Context, tractID, targetHash string) (*types.PriorityAnnotation, error)
	// BatchGetLatest returns the latest annotation per target in a single
	// query (spec.md §4.4: "support compilation over long chains without
	// N+1").
	BatchGetLatest(ctx context.Context, tractID string, targets []string) (map[string]*types.PriorityAnnotation, error)
}

// TagStore is the mutable tag-annotation log plus the tag registry
// (spec.md §4.5).
type TagStore interface {
	AddTag(ctx context.Context, ann *types.TagAnnotation) error
	RemoveTag(ctx context.Context, tractID, targetHash, tagName string, at types.TagAnnotation) error
	// GetTags unions immutable commit-time tags with mutable tag
	// annotations for a single commit (spec.md §4.5).
	GetTags(ctx context.Context, tractID, targetHash string, immutable []string) ([]string, error)
	RegisterTag(ctx context.Context, tractID string, entry types.TagRegistryEntry) error
	IsRegistered(ctx context.Context, tractID, tagName string) (bool, error)
}

// OperationLogStore is the structural-rewrite provenance log (spec.md
// §4.13, §3).
type OperationLogStore interface {
	SaveEvent(ctx context.Context, event *types.OperationEvent, commits []types.OperationEventCommit) error
	GetEvent(ctx context.Context, eventID string) (*types.OperationEvent, []types.OperationEventCommit, error)
	GetEventsForCommit(ctx context.Context, commitHash string) ([]*types.OperationEvent, error)
}

// SpawnStore is the cross-tract parent/child pointer table (spec.md §3, §1).
type SpawnStore interface {
	Save(ctx context.Context, sp *types.SpawnPointer) error
	ListChildren(ctx context.Context, parentTractID string) ([]*types.SpawnPointer, error)
	FindSpawnOrigin(ctx context.Context, childTractID string) (*types.SpawnPointer, error)
}

// MetadataStore holds small tract-scoped key/value pairs, including the
// reserved schema_version key (spec.md §3, §6).
type MetadataStore interface {
	Get(ctx context.Context, tractID, key string) (string, bool, error)
	Set(ctx context.Context, tractID, key, value string) error
}

// Store is the full storage surface a Tract is built on.
type Store interface {
	Blobs() BlobStore
	Commits() CommitStore
	Refs() RefStore
	Annotations() AnnotationStore
	Tags() TagStore
	OperationLog() OperationLogStore
	Spawns() SpawnStore
	Metadata() MetadataStore

	// Close releases the underlying DB connection/file handle.
	Close() error
}
