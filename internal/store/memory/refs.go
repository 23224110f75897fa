package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// RefStore is the memory-backed store.RefStore implementation.
type RefStore Store

func (r *RefStore) store() *Store { return (*Store)(r) }

func (r *RefStore) tractRefs(s *Store, tractID string) map[string]*types.Ref {
	m, ok := s.refs[tractID]
	if !ok {
		m = map[string]*types.Ref{}
		s.refs[tractID] = m
	}
	return m
}

func (r *RefStore) Get(ctx context.Context, tractID, refName string) (*types.Ref, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := r.tractRefs(s, tractID)[refName]
	if !ok {
		return nil, types.ErrRefNotFound
	}
	cp := *ref
	return &cp, nil
}

func (r *RefStore) GetHead(ctx context.Context, tractID string) (*types.Ref, error) {
	return r.Get(ctx, tractID, "HEAD")
}

// UpdateHead implements spec.md §4.3's three-way choice: create
// HEAD-symbolic->main plus the main ref on the very first commit; else
// advance the target branch of a symbolic HEAD; else move a detached HEAD
// directly.
func (r *RefStore) UpdateHead(ctx context.Context, tractID, newCommitHash string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := r.tractRefs(s, tractID)

	head, exists := refs["HEAD"]
	if !exists {
		main := types.BranchRefName("main")
		refs[main] = &types.Ref{TractID: tractID, RefName: main, CommitHash: &newCommitHash}
		target := main
		refs["HEAD"] = &types.Ref{TractID: tractID, RefName: "HEAD", SymbolicTarget: &target}
		return nil
	}
	if head.Attached() {
		branch := refs[*head.SymbolicTarget]
		branch.CommitHash = &newCommitHash
		return nil
	}
	head.CommitHash = &newCommitHash
	return nil
}

func (r *RefStore) AttachHead(ctx context.Context, tractID, branch string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := r.tractRefs(s, tractID)
	branchRef := types.BranchRefName(branch)
	if _, ok := refs[branchRef]; !ok {
		return types.ErrRefNotFound
	}
	refs["HEAD"] = &types.Ref{TractID: tractID, RefName: "HEAD", SymbolicTarget: &branchRef}
	return nil
}

func (r *RefStore) DetachHead(ctx context.Context, tractID, commitHash string) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := r.tractRefs(s, tractID)
	refs["HEAD"] = &types.Ref{TractID: tractID, RefName: "HEAD", CommitHash: &commitHash}
	return nil
}

func (r *RefStore) SetRef(ctx context.Context, ref *types.Ref) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ref
	r.tractRefs(s, ref.TractID)[ref.RefName] = &cp
	return nil
}

func (r *RefStore) DeleteRef(ctx context.Context, tractID, refName string, force bool) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := r.tractRefs(s, tractID)
	if head, ok := refs["HEAD"]; ok && head.Attached() && *head.SymbolicTarget == refName && !force {
		return types.ErrRefIsCheckedOut
	}
	delete(refs, refName)
	return nil
}

func (r *RefStore) ListBranches(ctx context.Context, tractID string) ([]*types.Ref, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Ref
	for name, ref := range r.tractRefs(s, tractID) {
		if name == "HEAD" {
			continue
		}
		cp := *ref
		out = append(out, &cp)
	}
	return out, nil
}
