package mergeops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/types"
)

// RebaseOptions parameterizes one Rebase() call (spec.md §4.10).
type RebaseOptions struct {
	Resolver  llmclient.Resolver
	LLMConfig types.LLMConfig
	Review    bool
}

// replayItem is one commit queued for replay onto the rebase target,
// surviving the semantic-safety resolver pass.
type replayItem struct {
	original     *types.Commit
	overrideText string
	warning      string
}

// Rebase implements spec.md §4.10's rebase(target_branch): computes the
// merge base, pre-flight-rejects merge commits in range, raises or
// resolves semantic-safety warnings, then replays the diverged commits
// onto the target tip.
func (e *Engine) Rebase(ctx context.Context, tractID, targetBranch string, opts RebaseOptions, registry *hooks.Registry) (*types.RebaseResult, *PendingRebase, error) {
	headHash, err := dag.ResolveHead(ctx, e.refs, tractID)
	if err != nil {
		return nil, nil, err
	}
	head, err := e.refs.GetHead(ctx, tractID)
	if err != nil {
		return nil, nil, err
	}
	if !head.Attached() {
		return nil, nil, types.ErrDetachedHead
	}
	branchName := strings.TrimPrefix(*head.SymbolicTarget, types.BranchRefName(""))

	targetRef, err := e.refs.Get(ctx, tractID, types.BranchRefName(targetBranch))
	if err != nil {
		return nil, nil, err
	}
	if targetRef.CommitHash == nil {
		return nil, nil, fmt.Errorf("%w: branch %q has no commits", types.ErrRebaseError, targetBranch)
	}
	targetHash := *targetRef.CommitHash

	g, err := dag.Load(ctx, e.commits, tractID)
	if err != nil {
		return nil, nil, err
	}
	mergeBase, ok := g.FindMergeBase(headHash, targetHash)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s and %s share no common ancestor", types.ErrRebaseError, headHash, targetHash)
	}

	toReplay := g.GetBranchCommits(headHash, mergeBase)
	for _, c := range toReplay {
		if len(g.Parents(c.CommitHash)) > 1 {
			return nil, nil, fmt.Errorf("%w: merge commit %s cannot be rebased", types.ErrRebaseError, c.CommitHash)
		}
	}

	targetAncestry := g.GetAllAncestors(targetHash)
	targetAncestry[targetHash] = true

	var warnings []string
	items := make([]replayItem, 0, len(toReplay))
	for _, c := range toReplay {
		item := replayItem{original: c}
		if c.Operation == types.OpEdit && c.EditTarget != nil && !targetAncestry[*c.EditTarget] {
			item.warning = fmt.Sprintf("EDIT commit %s targets %s, which is not in %s's ancestry", c.CommitHash, *c.EditTarget, targetBranch)
			warnings = append(warnings, item.warning)
		}
		items = append(items, item)
	}

	if len(warnings) > 0 {
		resolver := e.resolverOrDefault(opts.Resolver, opts.LLMConfig)
		if resolver == nil {
			return nil, nil, fmt.Errorf("%w: %d semantic safety warning(s) and no resolver configured", types.ErrSemanticSafetyError, len(warnings))
		}
		filtered := items[:0]
		for _, item := range items {
			if item.warning == "" {
				filtered = append(filtered, item)
				continue
			}
			res, err := resolver(item.warning)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve rebase warning for %s: %w", item.original.CommitHash, err)
			}
			switch res.Action {
			case llmclient.ResolutionAbort:
				return nil, nil, fmt.Errorf("%w: resolver aborted on %s", types.ErrSemanticSafetyError, item.original.CommitHash)
			case llmclient.ResolutionSkip:
				continue
			default:
				item.overrideText = res.ContentText
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	pending := newPendingRebase(ctx, e, tractID, headHash, branchName, targetHash, items, warnings)

	if opts.Review {
		return nil, pending, nil
	}
	if registry != nil {
		if err := registry.Dispatch(ctx, hooks.EventRebase, pending, false); err != nil {
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

// PendingRebase is the draft rebase plan before it has been committed
// (spec.md §4.10, §4.12). By the time it exists, semantic-safety warnings
// have already been resolved; Validate/Retry exist only so a registered
// "rebase" handler can drive it through the common PendingOperation
// machinery.
type PendingRebase struct {
	*hooks.Base

	engine  *Engine
	tractID string

	headHash   string
	branchName string
	targetHash string
	items      []replayItem
	warnings   []string

	result *types.RebaseResult
	ctx    context.Context
}

func newPendingRebase(ctx context.Context, e *Engine, tractID, headHash, branchName, targetHash string, items []replayItem, warnings []string) *PendingRebase {
	p := &PendingRebase{
		engine:     e,
		tractID:    tractID,
		headHash:   headHash,
		branchName: branchName,
		targetHash: targetHash,
		items:      items,
		warnings:   warnings,
		ctx:        ctx,
	}
	p.Base = hooks.NewBase("rebase", p.finalize, nil)
	return p
}

func (p *PendingRebase) Validate() hooks.ValidationResult { return hooks.ValidationResult{OK: true} }

func (p *PendingRebase) Retry(ctx context.Context, diagnosis string) (hooks.ValidationResult, error) {
	return p.Validate(), nil
}

func (p *PendingRebase) Metadata() map[string]any {
	return map[string]any{
		"tract_id":      p.tractID,
		"branch":        p.branchName,
		"replay_count":  len(p.items),
		"warning_count": len(p.warnings),
	}
}

// Result returns the committed RebaseResult, or nil if not yet committed.
func (p *PendingRebase) Result() *types.RebaseResult { return p.result }

// finalize implements spec.md §4.10's replay: detach HEAD at the target
// tip, recreate each diverged commit with a fresh parent pointer, then
// move the original branch ref forward and re-attach HEAD. On failure,
// the branch ref was never touched, so re-attaching HEAD alone restores
// the pre-rebase state (spec.md §5 TOCTOU).
func (p *PendingRebase) finalize() error {
	ctx := p.ctx
	e := p.engine

	current, err := dag.ResolveHead(ctx, e.refs, p.tractID)
	if err != nil {
		return err
	}
	if current != p.headHash {
		return fmt.Errorf("%w: HEAD changed since rebase was planned", types.ErrRebaseError)
	}

	if err := e.refs.DetachHead(ctx, p.tractID, p.targetHash); err != nil {
		return err
	}

	parent := p.targetHash
	var replayedFrom, replayedTo []string
	for _, item := range p.items {
		nc, err := e.replayCommit(ctx, item.original, &parent, item.overrideText)
		if err != nil {
			_ = e.refs.AttachHead(ctx, p.tractID, p.branchName)
			return err
		}
		replayedFrom = append(replayedFrom, item.original.CommitHash)
		replayedTo = append(replayedTo, nc.CommitHash)
		parent = nc.CommitHash
	}

	branchRef := types.BranchRefName(p.branchName)
	if err := e.refs.SetRef(ctx, &types.Ref{TractID: p.tractID, RefName: branchRef, CommitHash: &parent}); err != nil {
		_ = e.refs.AttachHead(ctx, p.tractID, p.branchName)
		return err
	}
	if err := e.refs.AttachHead(ctx, p.tractID, p.branchName); err != nil {
		return err
	}

	eventID := uuid.NewString()
	event := &types.OperationEvent{
		EventID:    eventID,
		TractID:    p.tractID,
		EventType:  types.EventReorganize,
		BranchName: p.branchName,
		CreatedAt:  time.Now(),
	}
	var eventCommits []types.OperationEventCommit
	for i, h := range replayedFrom {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleSource, Position: i})
	}
	for i, h := range replayedTo {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleResult, Position: i})
	}
	if err := e.oplog.SaveEvent(ctx, event, eventCommits); err != nil {
		return err
	}

	p.result = &types.RebaseResult{
		NewTip:       parent,
		ReplayedFrom: replayedFrom,
		ReplayedTo:   replayedTo,
		Warnings:     p.warnings,
	}
	return nil
}

// replayCommit rebuilds a diverged commit with a fresh parent pointer
// (and therefore a fresh hash), optionally substituting new content text
// when a semantic-safety resolver supplied one.
func (e *Engine) replayCommit(ctx context.Context, c *types.Commit, parent *string, overrideText string) (*types.Commit, error) {
	contentHash := c.ContentHash
	tokenCount := c.TokenCount
	if overrideText != "" {
		payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "assistant", Text: overrideText})
		if err != nil {
			return nil, err
		}
		blob := types.NewBlob(payload, c.CreatedAt)
		blob.TokenCount = e.tokenizer.CountText(overrideText)
		if err := e.blobs.SaveIfAbsent(ctx, blob); err != nil {
			return nil, err
		}
		contentHash = blob.ContentHash
		tokenCount = blob.TokenCount
	}

	seq, err := e.commits.NextSequence(ctx, c.TractID)
	if err != nil {
		return nil, err
	}
	nc := &types.Commit{
		TractID:          c.TractID,
		ParentHash:       parent,
		ContentHash:      contentHash,
		ContentType:      c.ContentType,
		Operation:        c.Operation,
		EditTarget:       c.EditTarget,
		Message:          c.Message,
		TokenCount:       tokenCount,
		MetadataJSON:     c.MetadataJSON,
		GenerationConfig: c.GenerationConfig,
		Tags:             c.Tags,
		CreatedAt:        c.CreatedAt,
		Sequence:         seq,
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
