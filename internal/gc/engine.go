// Package gc implements spec.md §4.11's garbage collection: sweep every
// commit unreachable from any ref (and not protected by a PINNED/IMPORTANT
// annotation or a caller-supplied preserve hash), then delete the orphans
// older than a retention window. The plan/exclude/finalize shape mirrors
// internal/compress's PendingCompress, generalized from a per-item summary
// result (steveyegge-beads' internal/compact/compactor.go
// compactSingleWithResult, which appends one outcome per issue to a shared
// CompactResult) to a per-orphan deletion outcome.
package gc

import (
	"context"
	"sort"
	"time"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Engine runs GC sweeps against one tract's store.
type Engine struct {
	blobs       store.BlobStore
	commits     store.CommitStore
	refs        store.RefStore
	annotations store.AnnotationStore
	oplog       store.OperationLogStore
}

// New builds a GC Engine.
func New(blobs store.BlobStore, commits store.CommitStore, refs store.RefStore, annotations store.AnnotationStore, oplog store.OperationLogStore) *Engine {
	return &Engine{blobs: blobs, commits: commits, refs: refs, annotations: annotations, oplog: oplog}
}

// Options parameterizes one Sweep() call (spec.md §4.11).
type Options struct {
	// Preserve lists additional hashes to protect regardless of
	// reachability or annotation.
	Preserve []string
	// OrphanRetentionDays is the minimum age, in days, an orphan must reach
	// before it becomes eligible for deletion. Zero means no age floor.
	OrphanRetentionDays int
	Now                 time.Time

	Review bool
}

// Sweep implements spec.md §4.11: compute the reachable set, collect
// orphans older than the retention window, then route the deletion plan
// through the three-tier hook protocol. registry may be nil, in which case
// the operation always auto-approves.
func (e *Engine) Sweep(ctx context.Context, tractID string, opts Options, registry *hooks.Registry) (*types.GCResult, *PendingGC, error) {
	g, err := dag.Load(ctx, e.commits, tractID)
	if err != nil {
		return nil, nil, err
	}

	reachable := map[string]bool{}
	branches, err := e.refs.ListBranches(ctx, tractID)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range branches {
		if b.CommitHash == nil {
			continue
		}
		reachable[*b.CommitHash] = true
		for h := range g.GetAllAncestors(*b.CommitHash) {
			reachable[h] = true
		}
	}
	if head, err := dag.ResolveHead(ctx, e.refs, tractID); err == nil {
		reachable[head] = true
		for h := range g.GetAllAncestors(head) {
			reachable[h] = true
		}
	}

	all, err := e.commits.AllForTract(ctx, tractID)
	if err != nil {
		return nil, nil, err
	}
	hashes := make([]string, 0, len(all))
	for _, c := range all {
		hashes = append(hashes, c.CommitHash)
	}
	annotations, err := e.annotations.BatchGetLatest(ctx, tractID, hashes)
	if err != nil {
		return nil, nil, err
	}

	protected := map[string]bool{}
	for _, h := range opts.Preserve {
		protected[h] = true
	}
	for hash, ann := range annotations {
		if ann.Priority == types.PriorityPinned || ann.Priority == types.PriorityImportant {
			protected[hash] = true
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.AddDate(0, 0, -opts.OrphanRetentionDays)

	var orphans []*types.Commit
	for _, c := range all {
		if reachable[c.CommitHash] || protected[c.CommitHash] {
			continue
		}
		if opts.OrphanRetentionDays > 0 && c.CreatedAt.After(cutoff) {
			continue
		}
		orphans = append(orphans, c)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].CommitHash < orphans[j].CommitHash })

	pending := newPendingGC(ctx, e, tractID, orphans)

	if opts.Review {
		return nil, pending, nil
	}
	if registry != nil {
		if err := registry.Dispatch(ctx, hooks.EventGC, pending, false); err != nil {
			return nil, nil, err
		}
	} else if err := pending.Approve(); err != nil {
		return nil, nil, err
	}
	if pending.Status() == hooks.StatusApproved {
		pending.MarkCommitted()
		return pending.result, pending, nil
	}
	return nil, pending, nil
}
