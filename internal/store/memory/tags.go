package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// TagStore is the memory-backed store.TagStore implementation.
type TagStore Store

func (t *TagStore) store() *Store { return (*Store)(t) }

func (t *TagStore) AddTag(ctx context.Context, ann *types.TagAnnotation) error {
	s := t.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ann
	cp.Removed = false
	s.tagAnns[ann.TractID] = append(s.tagAnns[ann.TractID], &cp)
	return nil
}

func (t *TagStore) RemoveTag(ctx context.Context, tractID, targetHash, tagName string, at types.TagAnnotation) error {
	s := t.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := at
	rm.TractID = tractID
	rm.TargetHash = targetHash
	rm.TagName = tagName
	rm.Removed = true
	s.tagAnns[tractID] = append(s.tagAnns[tractID], &rm)
	return nil
}

// GetTags unions a commit's immutable commit-time tags with the latest
// per-tag add/remove state from the mutable log (spec.md §4.5).
func (t *TagStore) GetTags(ctx context.Context, tractID, targetHash string, immutable []string) ([]string, error) {
	s := t.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := map[string]*types.TagAnnotation{}
	for _, ann := range s.tagAnns[tractID] {
		if ann.TargetHash != targetHash {
			continue
		}
		if cur, ok := latest[ann.TagName]; !ok || ann.CreatedAt.After(cur.CreatedAt) {
			latest[ann.TagName] = ann
		}
	}

	present := map[string]bool{}
	for _, tag := range immutable {
		present[tag] = true
	}
	for name, ann := range latest {
		present[name] = !ann.Removed
	}

	var out []string
	for name, ok := range present {
		if ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func (t *TagStore) RegisterTag(ctx context.Context, tractID string, entry types.TagRegistryEntry) error {
	s := t.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.tagRegistry[tractID]
	if !ok {
		reg = map[string]types.TagRegistryEntry{}
		s.tagRegistry[tractID] = reg
	}
	reg[entry.Name] = entry
	return nil
}

func (t *TagStore) IsRegistered(ctx context.Context, tractID, tagName string) (bool, error) {
	s := t.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.tagRegistry[tractID]; ok {
		if _, ok := reg[tagName]; ok {
			return true, nil
		}
	}
	for _, base := range types.BaseTags {
		if base == tagName {
			return true, nil
		}
	}
	return false, nil
}
