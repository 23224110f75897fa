package gc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/types"
)

// PendingGC is the draft deletion plan before it has been committed
// (spec.md §4.11, §4.12): the caller can Exclude() hashes from the plan,
// then Approve() (triggering finalisation) or Reject().
//
// Validate/Retry are trivial: a GC plan has no summarization step to
// retry, so both exist only to satisfy hooks.PendingOperation.
type PendingGC struct {
	*hooks.Base

	engine  *Engine
	tractID string

	orphans  []*types.Commit
	excluded map[string]bool

	result *types.GCResult
	ctx    context.Context
}

func newPendingGC(ctx context.Context, e *Engine, tractID string, orphans []*types.Commit) *PendingGC {
	p := &PendingGC{
		engine:   e,
		tractID:  tractID,
		orphans:  orphans,
		excluded: map[string]bool{},
		ctx:      ctx,
	}
	p.Base = hooks.NewBase("gc", p.finalize, nil)
	return p
}

// Exclude drops hash from the removal plan before approval (spec.md
// §4.11).
func (p *PendingGC) Exclude(hash string) { p.excluded[hash] = true }

// Plan exposes the draft deletion list (minus any exclusions) for review.
func (p *PendingGC) Plan() []string {
	out := make([]string, 0, len(p.orphans))
	for _, c := range p.orphans {
		if !p.excluded[c.CommitHash] {
			out = append(out, c.CommitHash)
		}
	}
	return out
}

func (p *PendingGC) Validate() hooks.ValidationResult { return hooks.ValidationResult{OK: true} }

func (p *PendingGC) Retry(ctx context.Context, diagnosis string) (hooks.ValidationResult, error) {
	return p.Validate(), nil
}

func (p *PendingGC) Metadata() map[string]any {
	return map[string]any{
		"tract_id":       p.tractID,
		"orphan_count":   len(p.orphans),
		"excluded_count": len(p.excluded),
	}
}

// Result returns the committed GCResult, or nil if not yet committed.
func (p *PendingGC) Result() *types.GCResult { return p.result }

// finalize implements spec.md §4.11's deletion: delete each surviving
// orphan's commit row (cascading per spec.md §4.2) then call
// delete_if_orphaned on its blob.
func (p *PendingGC) finalize() error {
	ctx := p.ctx
	e := p.engine

	var deletedCommits, deletedBlobs, excluded []string
	for _, c := range p.orphans {
		if p.excluded[c.CommitHash] {
			excluded = append(excluded, c.CommitHash)
			continue
		}
		if err := e.commits.Delete(ctx, c.CommitHash); err != nil {
			return err
		}
		deletedCommits = append(deletedCommits, c.CommitHash)

		removed, err := e.blobs.DeleteIfOrphaned(ctx, c.ContentHash)
		if err != nil {
			return err
		}
		if removed {
			deletedBlobs = append(deletedBlobs, c.ContentHash)
		}
	}

	eventID := uuid.NewString()
	event := &types.OperationEvent{
		EventID:   eventID,
		TractID:   p.tractID,
		EventType: types.EventGC,
		CreatedAt: time.Now(),
	}
	eventCommits := make([]types.OperationEventCommit, 0, len(deletedCommits))
	for i, h := range deletedCommits {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleSource, Position: i})
	}
	if err := e.oplog.SaveEvent(ctx, event, eventCommits); err != nil {
		return err
	}

	p.result = &types.GCResult{
		DeletedCommits: deletedCommits,
		DeletedBlobs:   deletedBlobs,
		Excluded:       excluded,
	}
	return nil
}
