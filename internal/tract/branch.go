package tract

import (
	"context"
	"fmt"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/types"
)

// CreateBranch points a new branch ref at commitHash (spec.md §4.3).
// Rejects a name already in use via types.ErrBranchExists.
func (t *Tract) CreateBranch(ctx context.Context, name, commitHash string) error {
	refName := types.BranchRefName(name)
	if _, err := t.store.Refs().Get(ctx, t.id, refName); err == nil {
		return fmt.Errorf("%w: %s", types.ErrBranchExists, name)
	}
	return t.store.Refs().SetRef(ctx, &types.Ref{TractID: t.id, RefName: refName, CommitHash: &commitHash})
}

// Checkout attaches HEAD to an existing branch (spec.md §4.3).
func (t *Tract) Checkout(ctx context.Context, branch string) error {
	if _, err := t.store.Refs().Get(ctx, t.id, types.BranchRefName(branch)); err != nil {
		return err
	}
	return t.store.Refs().AttachHead(ctx, t.id, branch)
}

// DetachCheckout points HEAD directly at commitHash, detaching it from
// any branch (spec.md §4.3).
func (t *Tract) DetachCheckout(ctx context.Context, commitHash string) error {
	return t.store.Refs().DetachHead(ctx, t.id, commitHash)
}

// DeleteBranch removes a branch ref, refusing to delete HEAD's current
// symbolic target even when force is set (spec.md §4.3's lifecycle rule).
func (t *Tract) DeleteBranch(ctx context.Context, name string, force bool) error {
	refName := types.BranchRefName(name)
	if head, err := t.store.Refs().GetHead(ctx, t.id); err == nil && head.Attached() && *head.SymbolicTarget == refName {
		return fmt.Errorf("%w: %s", types.ErrRefIsCheckedOut, name)
	}
	return t.store.Refs().DeleteRef(ctx, t.id, refName, force)
}

// ListBranches returns every branch ref in the tract.
func (t *Tract) ListBranches(ctx context.Context) ([]*types.Ref, error) {
	return t.store.Refs().ListBranches(ctx, t.id)
}

// Head resolves the current commit HEAD points at.
func (t *Tract) Head(ctx context.Context) (string, error) {
	return dag.ResolveHead(ctx, t.store.Refs(), t.id)
}

// Diff reports the commits on tip's branch not reachable from base
// (spec.md §4.7's GetBranchCommits, surfaced for audit tooling).
func (t *Tract) Diff(ctx context.Context, tip, base string) (*types.DiffResult, error) {
	g, err := dag.Load(ctx, t.store.Commits(), t.id)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	commits := g.GetBranchCommits(tip, base)
	hashes := make([]string, len(commits))
	for i, c := range commits {
		hashes[i] = c.CommitHash
	}
	return &types.DiffResult{Tip: tip, Base: base, Commits: hashes}, nil
}
