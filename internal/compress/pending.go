package compress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/types"
)

// PendingCompress is the draft result of Engine.Compress before it has
// been committed (spec.md §4.9 step 7): the caller can inspect/edit the
// draft summaries, then Approve() (triggering finalisation, step 8-9) or
// Reject().
//
// Validate/Retry are trivial here: by the time a PendingCompress exists,
// every group summary has already passed the retention/validator/token
// retry loop of step 6. They exist only to satisfy hooks.PendingOperation
// so a "compress" handler registered via hooks.Registry.On can drive it
// through the same AutoRetry machinery other operations use; compress's
// own retry loop is a distinct, earlier stage, not this one.
type PendingCompress struct {
	*hooks.Base

	engine  *Engine
	tractID string

	headHash     string
	rangeCommits []*types.Commit
	segments     []segment
	groups       []*group

	originalTokens   int
	compressedTokens int

	result *types.CompressResult

	// ctx is the context Engine.Compress ran under. hooks.PendingOperation's
	// Approve() takes no context, so finalisation captures the one the
	// plan was built with.
	ctx context.Context
}

func newPendingCompress(ctx context.Context, e *Engine, tractID, headHash string, rangeCommits []*types.Commit, segments []segment, groups []*group, originalTokens, compressedTokens int) *PendingCompress {
	p := &PendingCompress{
		engine:           e,
		tractID:          tractID,
		headHash:         headHash,
		rangeCommits:     rangeCommits,
		segments:         segments,
		groups:           groups,
		originalTokens:   originalTokens,
		compressedTokens: compressedTokens,
		ctx:              ctx,
	}
	p.Base = hooks.NewBase("compress", p.finalize, nil)
	return p
}

func (p *PendingCompress) Validate() hooks.ValidationResult {
	return hooks.ValidationResult{OK: true}
}

func (p *PendingCompress) Retry(ctx context.Context, diagnosis string) (hooks.ValidationResult, error) {
	return p.Validate(), nil
}

func (p *PendingCompress) Metadata() map[string]any {
	return map[string]any{
		"tract_id":          p.tractID,
		"original_tokens":   p.originalTokens,
		"compressed_tokens": p.compressedTokens,
		"groups":            len(p.groups),
	}
}

// DraftSummaries exposes each group's candidate summary text for a
// reviewer to inspect or edit in place before Approve().
func (p *PendingCompress) DraftSummaries() []string {
	out := make([]string, len(p.groups))
	for i, g := range p.groups {
		out[i] = g.summary
	}
	return out
}

// EditSummary overwrites group i's draft summary (review-mode editing,
// spec.md §4.9 step 7).
func (p *PendingCompress) EditSummary(i int, text string) {
	if i >= 0 && i < len(p.groups) {
		p.groups[i].summary = text
	}
}

// Result returns the committed CompressResult, or nil if not yet
// committed.
func (p *PendingCompress) Result() *types.CompressResult { return p.result }

// finalize implements spec.md §4.9 steps 8-9, run as the PendingOperation's
// onApprove callback.
func (p *PendingCompress) finalize() error {
	ctx := p.ctx
	e := p.engine

	currentHead, err := resolveHeadCommit(ctx, e.refs, p.tractID)
	if err != nil {
		return err
	}
	if currentHead != p.headHash {
		return fmt.Errorf("%w: HEAD changed since compression was planned", types.ErrCompressionError)
	}

	var preRangeParent *string
	if len(p.rangeCommits) > 0 {
		preRangeParent = p.rangeCommits[0].ParentHash
	}
	currentParent := preRangeParent

	var sourceHashes, summaryHashes, preservedHashes []string
	for _, seg := range p.segments {
		switch {
		case seg.pinned != nil:
			nc, err := e.recreateCommit(ctx, seg.pinned, currentParent)
			if err != nil {
				return err
			}
			currentParent = &nc.CommitHash
			preservedHashes = append(preservedHashes, nc.CommitHash)
		case seg.group != nil:
			nc, err := e.emitSummaryCommit(ctx, p.tractID, seg.group, currentParent)
			if err != nil {
				return err
			}
			currentParent = &nc.CommitHash
			summaryHashes = append(summaryHashes, nc.CommitHash)
			for _, c := range seg.group.commits {
				sourceHashes = append(sourceHashes, c.CommitHash)
			}
		}
	}
	if currentParent == nil {
		return fmt.Errorf("%w: compression produced an empty branch", types.ErrCompressionError)
	}
	newHead := *currentParent

	if err := e.refs.UpdateHead(ctx, p.tractID, newHead); err != nil {
		return err
	}

	eventID := uuid.NewString()
	event := &types.OperationEvent{
		EventID:          eventID,
		TractID:          p.tractID,
		EventType:        types.EventCompress,
		CreatedAt:        time.Now(),
		OriginalTokens:   p.originalTokens,
		CompressedTokens: p.compressedTokens,
	}
	eventCommits := make([]types.OperationEventCommit, 0, len(sourceHashes)+len(summaryHashes))
	for i, h := range sourceHashes {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleSource, Position: i})
	}
	for i, h := range summaryHashes {
		eventCommits = append(eventCommits, types.OperationEventCommit{EventID: eventID, CommitHash: h, Role: types.RoleResult, Position: i})
	}
	if err := e.oplog.SaveEvent(ctx, event, eventCommits); err != nil {
		return err
	}

	ratio := 0.0
	if p.originalTokens > 0 {
		ratio = float64(p.compressedTokens) / float64(p.originalTokens)
	}
	p.result = &types.CompressResult{
		CompressionID:    eventID,
		OriginalTokens:   p.originalTokens,
		CompressedTokens: p.compressedTokens,
		SourceCommits:    sourceHashes,
		SummaryCommits:   summaryHashes,
		PreservedCommits: preservedHashes,
		CompressionRatio: ratio,
		NewHead:          newHead,
	}
	return nil
}

// recreateCommit rebuilds a PINNED commit with a fresh parent pointer (and
// therefore a fresh hash, spec.md §3 invariant 1) onto the reorganised
// chain, preserving its content, tags, and metadata verbatim.
func (e *Engine) recreateCommit(ctx context.Context, c *types.Commit, parent *string) (*types.Commit, error) {
	seq, err := e.commits.NextSequence(ctx, c.TractID)
	if err != nil {
		return nil, err
	}
	nc := &types.Commit{
		TractID:          c.TractID,
		ParentHash:       parent,
		ContentHash:      c.ContentHash,
		ContentType:      c.ContentType,
		Operation:        types.OpAppend,
		Message:          c.Message,
		TokenCount:       c.TokenCount,
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

// emitSummaryCommit writes one group's accepted summary as a new dialogue
// commit at the position of the group's first member (spec.md §4.9 step
// 8).
func (e *Engine) emitSummaryCommit(ctx context.Context, tractID string, grp *group, parent *string) (*types.Commit, error) {
	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "assistant", Text: grp.summary})
	if err != nil {
		return nil, err
	}
	firstCreated := grp.commits[0].CreatedAt
	blob := types.NewBlob(payload, firstCreated)
	blob.TokenCount = e.tokenizer.CountText(grp.summary)
	if err := e.blobs.SaveIfAbsent(ctx, blob); err != nil {
		return nil, err
	}

	seq, err := e.commits.NextSequence(ctx, tractID)
	if err != nil {
		return nil, err
	}
	nc := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpAppend,
		TokenCount:  blob.TokenCount,
		CreatedAt:   firstCreated,
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
