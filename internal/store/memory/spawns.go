package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// SpawnStore is the memory-backed store.SpawnStore implementation.
type SpawnStore Store

func (sp *SpawnStore) store() *Store { return (*Store)(sp) }

func (sp *SpawnStore) Save(ctx context.Context, s *types.SpawnPointer) error {
	store := sp.store()
	store.mu.Lock()
	defer store.mu.Unlock()
	cp := *s
	store.spawns = append(store.spawns, &cp)
	return nil
}

func (sp *SpawnStore) ListChildren(ctx context.Context, parentTractID string) ([]*types.SpawnPointer, error) {
	store := sp.store()
	store.mu.Lock()
	defer store.mu.Unlock()
	var out []*types.SpawnPointer
	for _, s := range store.spawns {
		if s.ParentTractID == parentTractID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (sp *SpawnStore) FindSpawnOrigin(ctx context.Context, childTractID string) (*types.SpawnPointer, error) {
	store := sp.store()
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, s := range store.spawns {
		if s.ChildTractID == childTractID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}
