package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// AnnotationStore is the memory-backed store.AnnotationStore implementation.
type AnnotationStore Store

func (a *AnnotationStore) store() *Store { return (*Store)(a) }

func (a *AnnotationStore) Append(ctx context.Context, ann *types.PriorityAnnotation) error {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ann
	s.annotations[ann.TractID] = append(s.annotations[ann.TractID], &cp)
	return nil
}

func (a *AnnotationStore) GetLatest(ctx context.Context, tractID, targetHash string) (*types.PriorityAnnotation, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *types.PriorityAnnotation
	for _, ann := range s.annotations[tractID] {
		if ann.TargetHash != targetHash {
			continue
		}
		if latest == nil || ann.CreatedAt.After(latest.CreatedAt) {
			latest = ann
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// BatchGetLatest returns the latest annotation per target in one pass over
// the tract's annotation log, avoiding the N+1 query pattern compilation
// over long EDIT chains would otherwise require (spec.md §4.4).
func (a *AnnotationStore) BatchGetLatest(ctx context.Context, tractID string, targets []string) (map[string]*types.PriorityAnnotation, error) {
	s := a.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(targets))
	for _, t := range targets {
		want[t] = true
	}
	out := map[string]*types.PriorityAnnotation{}
	for _, ann := range s.annotations[tractID] {
		if !want[ann.TargetHash] {
			continue
		}
		if cur, ok := out[ann.TargetHash]; !ok || ann.CreatedAt.After(cur.CreatedAt) {
			cp := *ann
			out[ann.TargetHash] = &cp
		}
	}
	return out, nil
}
