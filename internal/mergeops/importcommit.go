package mergeops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/types"
)

// ImportOptions parameterizes one ImportCommit() call (spec.md §4.10).
type ImportOptions struct {
	Resolver  llmclient.Resolver
	LLMConfig types.LLMConfig
	Review    bool
}

// ImportCommit implements spec.md §4.10's import-commit (cherry-pick):
// the same content lands on top of the current HEAD. If the commit is an
// EDIT whose target isn't in HEAD's ancestry, the issue is resolved
// (skip/resolved/abort) before the commit is written.
func (e *Engine) ImportCommit(ctx context.Context, tractID, sourceHash string, opts ImportOptions, registry *hooks.Registry) (*types.ImportResult, *PendingImport, error) {
	source, err := e.commits.Get(ctx, sourceHash)
	if err != nil {
		return nil, nil, err
	}
	headHash, err := dag.ResolveHead(ctx, e.refs, tractID)
	if err != nil {
		return nil, nil, err
	}

	convertToAppend := false
	if source.Operation == types.OpEdit && source.EditTarget != nil {
		g, err := dag.Load(ctx, e.commits, tractID)
		if err != nil {
			return nil, nil, err
		}
		ancestry := g.GetAllAncestors(headHash)
		ancestry[headHash] = true
		if !ancestry[*source.EditTarget] {
			resolver := e.resolverOrDefault(opts.Resolver, opts.LLMConfig)
			if resolver == nil {
				return nil, nil, fmt.Errorf("%w: EDIT target %s not in current branch ancestry", types.ErrImportCommitError, *source.EditTarget)
			}
			issue := fmt.Sprintf("Importing EDIT commit %s, whose target %s is not in the current branch's ancestry.", sourceHash, *source.EditTarget)
			res, err := resolver(issue)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve import issue for %s: %w", sourceHash, err)
			}
			switch res.Action {
			case llmclient.ResolutionAbort:
				return nil, nil, fmt.Errorf("%w: resolver aborted import of %s", types.ErrImportCommitError, sourceHash)
			case llmclient.ResolutionSkip:
				return &types.ImportResult{Skipped: []string{sourceHash}}, nil, nil
			default:
				convertToAppend = true
			}
		}
	}

	pending := newPendingImport(ctx, e, tractID, headHash, source, convertToAppend)

	if opts.Review {
		return nil, pending, nil
	}
	if registry != nil {
		if err := registry.Dispatch(ctx, hooks.EventImport, pending, false); err != nil {
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

// PendingImport is the draft cherry-pick before it has been committed
// (spec.md §4.10, §4.12).
type PendingImport struct {
	*hooks.Base

	engine  *Engine
	tractID string

	headHash        string
	source          *types.Commit
	convertToAppend bool

	result *types.ImportResult
	ctx    context.Context
}

func newPendingImport(ctx context.Context, e *Engine, tractID, headHash string, source *types.Commit, convertToAppend bool) *PendingImport {
	p := &PendingImport{
		engine:          e,
		tractID:         tractID,
		headHash:        headHash,
		source:          source,
		convertToAppend: convertToAppend,
		ctx:             ctx,
	}
	p.Base = hooks.NewBase("import", p.finalize, nil)
	return p
}

func (p *PendingImport) Validate() hooks.ValidationResult { return hooks.ValidationResult{OK: true} }

func (p *PendingImport) Retry(ctx context.Context, diagnosis string) (hooks.ValidationResult, error) {
	return p.Validate(), nil
}

func (p *PendingImport) Metadata() map[string]any {
	return map[string]any{
		"tract_id":    p.tractID,
		"source_hash": p.source.CommitHash,
	}
}

// Result returns the committed ImportResult, or nil if not yet committed.
func (p *PendingImport) Result() *types.ImportResult { return p.result }

// finalize writes the cherry-picked commit onto the current HEAD (spec.md
// §4.10). When convertToAppend is set, the resolved EDIT is written as an
// APPEND with its original operation/target folded into metadata.
func (p *PendingImport) finalize() error {
	ctx := p.ctx
	e := p.engine
	c := p.source

	operation := c.Operation
	editTarget := c.EditTarget
	metadata := c.MetadataJSON
	if p.convertToAppend {
		meta := map[string]any{}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &meta)
		}
		meta["original_operation"] = string(c.Operation)
		if c.EditTarget != nil {
			meta["original_edit_target"] = *c.EditTarget
		}
		encoded, err := types.CanonicalJSON(meta)
		if err != nil {
			return err
		}
		metadata = encoded
		operation = types.OpAppend
		editTarget = nil
	}

	seq, err := e.commits.NextSequence(ctx, p.tractID)
	if err != nil {
		return err
	}
	nc := &types.Commit{
		TractID:          p.tractID,
		ParentHash:       &p.headHash,
		ContentHash:      c.ContentHash,
		ContentType:      c.ContentType,
		Operation:        operation,
		EditTarget:       editTarget,
		Message:          c.Message,
		TokenCount:       c.TokenCount,
		MetadataJSON:     metadata,
		GenerationConfig: c.GenerationConfig,
		Tags:             c.Tags,
		CreatedAt:        c.CreatedAt,
		Sequence:         seq,
	}
	hash, err := nc.ComputeHash()
	if err != nil {
		return err
	}
	nc.CommitHash = hash
	if err := e.commits.Save(ctx, nc); err != nil {
		return err
	}
	if err := e.refs.UpdateHead(ctx, p.tractID, hash); err != nil {
		return err
	}

	eventID := uuid.NewString()
	event := &types.OperationEvent{
		EventID:   eventID,
		TractID:   p.tractID,
		EventType: types.EventImport,
		CreatedAt: time.Now(),
	}
	eventCommits := []types.OperationEventCommit{
		{EventID: eventID, CommitHash: c.CommitHash, Role: types.RoleSource, Position: 0},
		{EventID: eventID, CommitHash: hash, Role: types.RoleResult, Position: 0},
	}
	if err := e.oplog.SaveEvent(ctx, event, eventCommits); err != nil {
		return err
	}

	p.result = &types.ImportResult{ImportedCommits: []string{hash}}
	return nil
}
