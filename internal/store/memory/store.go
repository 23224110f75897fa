// Package memory is an in-process, map-backed Store implementation used
// for fast unit tests without a SQLite file, mirroring the teacher's own
// internal/storage/memory test double (DESIGN.md).
package memory

import (
	"sync"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Store is the in-memory backend. All sub-stores share one mutex since
// tests care about correctness, not concurrency throughput.
type Store struct {
	mu sync.Mutex

	blobs       map[string]*types.Blob
	commits     map[string]*types.Commit
	parents     []types.CommitParent
	refs        map[string]map[string]*types.Ref // tractID -> refName -> ref
	annotations map[string][]*types.PriorityAnnotation // tractID -> appended list
	tagAnns     map[string][]*types.TagAnnotation
	tagRegistry map[string]map[string]types.TagRegistryEntry // tractID -> tagName -> entry
	events      map[string]*types.OperationEvent
	eventCommits map[string][]types.OperationEventCommit
	spawns      []*types.SpawnPointer
	metadata    map[string]map[string]string
	sequences   map[string]int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		blobs:        map[string]*types.Blob{},
		commits:      map[string]*types.Commit{},
		refs:         map[string]map[string]*types.Ref{},
		annotations:  map[string][]*types.PriorityAnnotation{},
		tagAnns:      map[string][]*types.TagAnnotation{},
		tagRegistry:  map[string]map[string]types.TagRegistryEntry{},
		events:       map[string]*types.OperationEvent{},
		eventCommits: map[string][]types.OperationEventCommit{},
		metadata:     map[string]map[string]string{},
		sequences:    map[string]int64{},
	}
}

func (s *Store) Blobs() store.BlobStore             { return (*BlobStore)(s) }
func (s *Store) Commits() store.CommitStore         { return (*CommitStore)(s) }
func (s *Store) Refs() store.RefStore               { return (*RefStore)(s) }
func (s *Store) Annotations() store.AnnotationStore { return (*AnnotationStore)(s) }
func (s *Store) Tags() store.TagStore               { return (*TagStore)(s) }
func (s *Store) OperationLog() store.OperationLogStore { return (*OperationLogStore)(s) }
func (s *Store) Spawns() store.SpawnStore           { return (*SpawnStore)(s) }
func (s *Store) Metadata() store.MetadataStore      { return (*MetadataStore)(s) }

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
