package mergeops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/types"
)

// MergeOptions parameterizes one Merge() call (spec.md §4.10).
type MergeOptions struct {
	Resolver  llmclient.Resolver
	Guidance  string
	LLMConfig types.LLMConfig
	Review    bool
}

// Merge implements spec.md §4.10's merge(source_branch): no-op if source
// is already an ancestor of HEAD, fast-forward if HEAD is an ancestor of
// source, else a three-way merge with per-conflict resolution.
func (e *Engine) Merge(ctx context.Context, tractID, sourceBranch string, opts MergeOptions, registry *hooks.Registry) (*types.MergeResult, *PendingMerge, error) {
	headHash, err := dag.ResolveHead(ctx, e.refs, tractID)
	if err != nil {
		return nil, nil, err
	}
	sourceRef, err := e.refs.Get(ctx, tractID, types.BranchRefName(sourceBranch))
	if err != nil {
		return nil, nil, err
	}
	if sourceRef.CommitHash == nil {
		return nil, nil, fmt.Errorf("%w: branch %q has no commits", types.ErrMergeError, sourceBranch)
	}
	sourceHash := *sourceRef.CommitHash

	g, err := dag.Load(ctx, e.commits, tractID)
	if err != nil {
		return nil, nil, err
	}

	if sourceHash == headHash || g.IsAncestor(sourceHash, headHash) {
		return &types.MergeResult{NoOp: true}, nil, nil
	}
	if g.IsAncestor(headHash, sourceHash) {
		if err := e.refs.UpdateHead(ctx, tractID, sourceHash); err != nil {
			return nil, nil, err
		}
		return &types.MergeResult{FastForward: true, MergeCommit: sourceHash}, nil, nil
	}

	mergeBase, ok := g.FindMergeBase(headHash, sourceHash)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s and %s share no common ancestor", types.ErrMergeError, headHash, sourceHash)
	}

	headUnique := g.GetBranchCommits(headHash, mergeBase)
	sourceUnique := g.GetBranchCommits(sourceHash, mergeBase)

	conflicts, err := detectConflicts(ctx, e.blobs, e.commits, headUnique, sourceUnique)
	if err != nil {
		return nil, nil, err
	}

	resolutions := map[string]string{}
	resolver := e.resolverOrDefault(opts.Resolver, opts.LLMConfig)
	if resolver != nil {
		for _, c := range conflicts {
			res, err := resolver(describeConflict(c))
			if err != nil {
				return nil, nil, fmt.Errorf("resolve conflict %s: %w", c.TargetHash, err)
			}
			if res.Action == llmclient.ResolutionResolved && res.ContentText != "" {
				resolutions[c.Key()] = res.ContentText
			}
		}
	}

	pending := newPendingMerge(ctx, e, tractID, headHash, sourceHash, sourceBranch, conflicts, resolutions, opts.Guidance)

	if opts.Review {
		return nil, pending, nil
	}
	if registry != nil {
		if err := registry.Dispatch(ctx, hooks.EventMerge, pending, false); err != nil {
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

// PendingMerge is the draft three-way merge before it has been committed
// (spec.md §4.10, §4.12): conflicts and their candidate resolutions are
// editable until Approve().
type PendingMerge struct {
	*hooks.Base

	engine  *Engine
	tractID string

	headHash     string
	sourceHash   string
	sourceBranch string

	conflicts   []Conflict
	resolutions map[string]string
	guidance    string

	result *types.MergeResult
	ctx    context.Context
}

func newPendingMerge(ctx context.Context, e *Engine, tractID, headHash, sourceHash, sourceBranch string, conflicts []Conflict, resolutions map[string]string, guidance string) *PendingMerge {
	p := &PendingMerge{
		engine:       e,
		tractID:      tractID,
		headHash:     headHash,
		sourceHash:   sourceHash,
		sourceBranch: sourceBranch,
		conflicts:    conflicts,
		resolutions:  resolutions,
		guidance:     guidance,
		ctx:          ctx,
	}
	p.Base = hooks.NewBase("merge", p.finalize, nil)
	return p
}

// Conflicts exposes the draft conflict list for review.
func (p *PendingMerge) Conflicts() []Conflict { return p.conflicts }

// SetResolution records (or overwrites) the resolution text for one
// conflict key (spec.md §4.12 "set_resolution").
func (p *PendingMerge) SetResolution(key, text string) { p.resolutions[key] = text }

// Result returns the committed MergeResult, or nil if not yet committed.
func (p *PendingMerge) Result() *types.MergeResult { return p.result }

// Validate requires every conflict to have a non-empty resolution
// (spec.md §4.10).
func (p *PendingMerge) Validate() hooks.ValidationResult {
	for _, c := range p.conflicts {
		if p.resolutions[c.Key()] == "" {
			return hooks.ValidationResult{OK: false, Diagnosis: fmt.Sprintf("conflict %s has no resolution", c.Key())}
		}
	}
	return hooks.ValidationResult{OK: true}
}

// Retry re-invokes the resolver for any conflict still missing a
// resolution, folding the prior diagnosis into the guidance it's given.
func (p *PendingMerge) Retry(ctx context.Context, diagnosis string) (hooks.ValidationResult, error) {
	resolver := p.engine.resolverOrDefault(nil, types.LLMConfig{})
	if resolver != nil {
		for _, c := range p.conflicts {
			if p.resolutions[c.Key()] != "" {
				continue
			}
			res, err := resolver(describeConflict(c) + "\n\nPrevious attempt was rejected: " + diagnosis)
			if err != nil {
				return hooks.ValidationResult{}, err
			}
			if res.Action == llmclient.ResolutionResolved && res.ContentText != "" {
				p.resolutions[c.Key()] = res.ContentText
			}
		}
	}
	return p.Validate(), nil
}

func (p *PendingMerge) Metadata() map[string]any {
	return map[string]any{
		"tract_id":       p.tractID,
		"source_branch":  p.sourceBranch,
		"conflict_count": len(p.conflicts),
	}
}

// finalize implements spec.md §4.10's merge commit construction: a merge
// commit with two parent edges (0=HEAD, 1=source), then one EDIT commit
// per resolution chained onto it.
func (p *PendingMerge) finalize() error {
	ctx := p.ctx
	e := p.engine

	seq, err := e.commits.NextSequence(ctx, p.tractID)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("merge %s into HEAD", p.sourceBranch)
	var decisions []string
	for _, c := range p.conflicts {
		decisions = append(decisions, c.Key())
	}
	payload, err := types.EncodeContent(types.Content{Type: types.ContentSession, SessionType: "merge", Summary: summary, Decisions: decisions})
	if err != nil {
		return err
	}
	now := time.Now()
	blob := types.NewBlob(payload, now)
	blob.TokenCount = e.tokenizer.CountText(summary)
	if err := e.blobs.SaveIfAbsent(ctx, blob); err != nil {
		return err
	}
	mergeCommit := &types.Commit{
		TractID:     p.tractID,
		ParentHash:  &p.headHash,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentSession,
		Operation:   types.OpAppend,
		TokenCount:  blob.TokenCount,
		CreatedAt:   now,
		Sequence:    seq,
	}
	hash, err := mergeCommit.ComputeHash()
	if err != nil {
		return err
	}
	mergeCommit.CommitHash = hash
	if err := e.commits.Save(ctx, mergeCommit); err != nil {
		return err
	}
	if err := e.commits.SaveParent(ctx, types.CommitParent{CommitHash: hash, ParentHash: p.sourceHash, Position: 1}); err != nil {
		return err
	}

	parent := hash
	var resolvedEdits []string
	for _, c := range p.conflicts {
		text := p.resolutions[c.Key()]
		if text == "" {
			continue
		}
		nc, err := e.emitEditCommit(ctx, p.tractID, c.TargetHash, text, &parent, now)
		if err != nil {
			return err
		}
		parent = nc.CommitHash
		resolvedEdits = append(resolvedEdits, nc.CommitHash)
	}

	if err := e.refs.UpdateHead(ctx, p.tractID, parent); err != nil {
		return err
	}

	eventID := uuid.NewString()
	event := &types.OperationEvent{
		EventID:   eventID,
		TractID:   p.tractID,
		EventType: types.EventMerge,
		CreatedAt: time.Now(),
	}
	var eventCommits []types.OperationEventCommit
	for i, c := range p.conflicts {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: c.headEditHash, Role: types.RoleSource, Position: i * 2})
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: c.sourceEditHash, Role: types.RoleSource, Position: i*2 + 1})
	}
	eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: hash, Role: types.RoleResult, Position: 0})
	for i, h := range resolvedEdits {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleResult, Position: i + 1})
	}
	if err := e.oplog.SaveEvent(ctx, event, eventCommits); err != nil {
		return err
	}

	p.result = &types.MergeResult{
		MergeCommit:   hash,
		ResolvedEdits: resolvedEdits,
		ConflictCount: len(p.conflicts),
	}
	return nil
}

// emitEditCommit writes one conflict's resolved text as an EDIT commit
// targeting the original base commit.
func (e *Engine) emitEditCommit(ctx context.Context, tractID, target, text string, parent *string, createdAt time.Time) (*types.Commit, error) {
	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "assistant", Text: text})
	if err != nil {
		return nil, err
	}
	blob := types.NewBlob(payload, createdAt)
	blob.TokenCount = e.tokenizer.CountText(text)
	if err := e.blobs.SaveIfAbsent(ctx, blob); err != nil {
		return nil, err
	}
	seq, err := e.commits.NextSequence(ctx, tractID)
	if err != nil {
		return nil, err
	}
	targetCopy := target
	nc := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpEdit,
		EditTarget:  &targetCopy,
		TokenCount:  blob.TokenCount,
		CreatedAt:   createdAt,
		Sequence:    seq,
	}
	hash, err := nc.ComputeHash()
	if err != nil {
		return nil, err
	}
	nc.CommitHash = hash
	if err := e.commits.Save(ctx, nc); err != nil {
		return nil, err
	}
	return nc, nil
}

