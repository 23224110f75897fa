package tract

import (
	"context"

	"github.com/tract-dev/tract/internal/compress"
	"github.com/tract-dev/tract/internal/gc"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/mergeops"
	"github.com/tract-dev/tract/internal/types"
)

// RegisterHook registers handler for event (spec.md §4.12 handler mode),
// replacing any previously registered handler for the same event.
func (t *Tract) RegisterHook(event hooks.OperationEvent, handler hooks.Handler) {
	t.hooks.On(event, handler)
}

// Compress partitions and summarises a commit range (spec.md §4.9). It
// returns (result, pending) when the compression is committed, with
// pending in its committed state, and (nil, pending) when opts.Review is
// set or a "compress" handler left it pending or rejected it.
func (t *Tract) Compress(ctx context.Context, opts compress.Options) (*types.CompressResult, *compress.PendingCompress, error) {
	return t.compress.Compress(ctx, t.id, opts, t.hooks)
}

// Merge three-way-merges sourceBranch into HEAD (spec.md §4.10).
func (t *Tract) Merge(ctx context.Context, sourceBranch string, opts mergeops.MergeOptions) (*types.MergeResult, *mergeops.PendingMerge, error) {
	return t.merge.Merge(ctx, t.id, sourceBranch, opts, t.hooks)
}

// Rebase replays HEAD's unique commits onto targetBranch (spec.md §4.10).
func (t *Tract) Rebase(ctx context.Context, targetBranch string, opts mergeops.RebaseOptions) (*types.RebaseResult, *mergeops.PendingRebase, error) {
	return t.merge.Rebase(ctx, t.id, targetBranch, opts, t.hooks)
}

// ImportCommit cherry-picks sourceHash onto HEAD (spec.md §4.10).
func (t *Tract) ImportCommit(ctx context.Context, sourceHash string, opts mergeops.ImportOptions) (*types.ImportResult, *mergeops.PendingImport, error) {
	return t.merge.ImportCommit(ctx, t.id, sourceHash, opts, t.hooks)
}

// GC sweeps unreachable, non-pinned commits older than
// opts.OrphanRetentionDays (spec.md §4.11).
func (t *Tract) GC(ctx context.Context, opts gc.Options) (*types.GCResult, *gc.PendingGC, error) {
	return t.gc.Sweep(ctx, t.id, opts, t.hooks)
}
