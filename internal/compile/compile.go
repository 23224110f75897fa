// Package compile implements the compiler (spec.md §4.8): it projects a
// tract's commit DAG, from a given HEAD, into a bounded ordered message
// list with token accounting. There is no teacher analogue for this
// pipeline (beads has no LLM-context compilation step); the ancestor
// batch-load + in-process traversal style follows internal/dag, itself
// grounded on internal/storage/sqlite/queries.go's "load once, walk in Go"
// approach to graph queries.
package compile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Compiler produces CompiledContext values from a tract's stored commits.
type Compiler struct {
	blobs       store.BlobStore
	commits     store.CommitStore
	annotations store.AnnotationStore
	tokenizer   TokenCounter
}

// New builds a Compiler over the given sub-stores and tokenizer.
func New(blobs store.BlobStore, commits store.CommitStore, annotations store.AnnotationStore, tokenizer TokenCounter) *Compiler {
	return &Compiler{blobs: blobs, commits: commits, annotations: annotations, tokenizer: tokenizer}
}

// Options parameterizes one compile() call (spec.md §4.8).
type Options struct {
	AtTime                 *time.Time
	AtCommit               *string
	IncludeReasoning       bool
	IncludeEditAnnotations bool
	// Order is carried on Options but Compile does not read it: output is
	// always in ancestor order. ReorderSafetyCheck reports the warnings a
	// given order would raise.
	Order []string
}

// effectiveCommit is one ancestor commit after EDIT-chain folding: either
// an unedited APPEND, or an APPEND whose position is kept but whose
// content comes from the latest EDIT targeting it.
type effectiveCommit struct {
	position *types.Commit // the APPEND commit whose slot this occupies
	content  *types.Commit // the commit whose content_hash/content_type apply
	edited   bool
	pinned   bool // latest priority annotation on position is PINNED
}

// Compile runs the full pipeline of spec.md §4.8 steps 1-9.
func (c *Compiler) Compile(ctx context.Context, tractID, headHash string, opts Options) (*types.CompiledContext, error) {
	ancestors, err := c.enumerateAncestors(ctx, tractID, headHash)
	if err != nil {
		return nil, err
	}

	ancestors = applyCutoffs(ancestors, opts.AtTime, opts.AtCommit)

	effective := foldEditChains(ancestors)

	effective, err = c.filterByPriority(ctx, tractID, effective)
	if err != nil {
		return nil, err
	}

	effective = filterByContentType(effective, opts.IncludeReasoning)

	messages, generationConfigs, err := c.project(effective, opts.IncludeEditAnnotations)
	if err != nil {
		return nil, err
	}

	messages = aggregateTail(messages)

	tokenCount := c.tokenizer.CountMessages(messages)

	return &types.CompiledContext{
		Messages:          messages,
		TokenCount:        tokenCount,
		CommitCount:       len(effective),
		TokenSource:       c.tokenizer.Source(),
		GenerationConfigs: generationConfigs,
	}, nil
}

// enumerateAncestors implements step 1: the first-parent chain from
// headHash, plus — for every merge commit encountered — the second
// parent's unique ancestors, each folded in once. Step 2 (sort by
// created_at, tie-break commit hash) is applied before returning.
func (c *Compiler) enumerateAncestors(ctx context.Context, tractID, headHash string) ([]*types.Commit, error) {
	g, err := dag.Load(ctx, c.commits, tractID)
	if err != nil {
		return nil, err
	}
	head := g.Commit(headHash)
	if head == nil {
		return nil, types.ErrCommitNotFound
	}

	included := map[string]bool{headHash: true}
	queue := []string{headHash}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, extra := range g.SecondParentUniqueAncestors(cur) {
			if !included[extra] {
				included[extra] = true
				queue = append(queue, extra)
			}
		}
	}
	for h := range g.GetAllAncestors(headHash) {
		included[h] = true
	}

	out := make([]*types.Commit, 0, len(included))
	for h := range included {
		if cm := g.Commit(h); cm != nil {
			out = append(out, cm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CommitHash < out[j].CommitHash
	})
	return out, nil
}

// applyCutoffs implements step 3: drop commits after atTime or after
// atCommit's position in the (already sorted) sequence.
func applyCutoffs(commits []*types.Commit, atTime *time.Time, atCommit *string) []*types.Commit {
	if atTime == nil && atCommit == nil {
		return commits
	}
	out := make([]*types.Commit, 0, len(commits))
	for _, cm := range commits {
		if atTime != nil && cm.CreatedAt.After(*atTime) {
			continue
		}
		out = append(out, cm)
		if atCommit != nil && cm.CommitHash == *atCommit {
			break
		}
	}
	return out
}

// foldEditChains implements step 4. Each APPEND commit's position is
// preserved; its content comes from the latest (by created_at) commit in
// its EDIT chain, if any EDIT commits are present in the ancestor set.
func foldEditChains(commits []*types.Commit) []effectiveCommit {
	byHash := make(map[string]*types.Commit, len(commits))
	for _, cm := range commits {
		byHash[cm.CommitHash] = cm
	}

	// latestEdit maps an APPEND's hash (transitively) to the newest EDIT
	// commit targeting it, following edit_target chains of any depth.
	latestEdit := map[string]*types.Commit{}
	for _, cm := range commits {
		if cm.Operation != types.OpEdit || cm.EditTarget == nil {
			continue
		}
		root := resolveEditRoot(byHash, *cm.EditTarget)
		if cur, ok := latestEdit[root]; !ok || cm.CreatedAt.After(cur.CreatedAt) {
			latestEdit[root] = cm
		}
	}

	var out []effectiveCommit
	for _, cm := range commits {
		if cm.Operation != types.OpAppend {
			continue // EDIT commits never occupy their own slot
		}
		if edit, ok := latestEdit[cm.CommitHash]; ok {
			out = append(out, effectiveCommit{position: cm, content: edit, edited: true})
		} else {
			out = append(out, effectiveCommit{position: cm, content: cm})
		}
	}
	return out
}

// resolveEditRoot follows edit_target pointers to the original APPEND
// commit an EDIT chain ultimately targets, so a chain of EDIT-on-EDIT
// commits still folds onto c0's single slot.
func resolveEditRoot(byHash map[string]*types.Commit, target string) string {
	seen := map[string]bool{}
	cur := target
	for {
		if seen[cur] {
			return cur // cycle guard; should not occur in a valid DAG
		}
		seen[cur] = true
		cm, ok := byHash[cur]
		if !ok || cm.Operation != types.OpEdit || cm.EditTarget == nil {
			return cur
		}
		cur = *cm.EditTarget
	}
}

// filterByPriority implements step 5: SKIP drops, PINNED forces
// inclusion (handled by never being dropped further on), NORMAL/IMPORTANT
// are compile-transparent.
func (c *Compiler) filterByPriority(ctx context.Context, tractID string, effective []effectiveCommit) ([]effectiveCommit, error) {
	targets := make([]string, len(effective))
	for i, ec := range effective {
		targets[i] = ec.position.CommitHash
	}
	latest, err := c.annotations.BatchGetLatest(ctx, tractID, targets)
	if err != nil {
		return nil, err
	}

	var out []effectiveCommit
	for _, ec := range effective {
		ann, ok := latest[ec.position.CommitHash]
		if ok && ann.Priority == types.PrioritySkip {
			continue
		}
		ec.pinned = ok && ann.Priority == types.PriorityPinned
		out = append(out, ec)
	}
	return out, nil
}

// filterByContentType implements step 6: drop reasoning content by
// default, unless include_reasoning is set or the commit is PINNED.
// Explicit SKIP already removed the commit in step 5 and beats both.
func filterByContentType(effective []effectiveCommit, includeReasoning bool) []effectiveCommit {
	if includeReasoning {
		return effective
	}
	var out []effectiveCommit
	for _, ec := range effective {
		if ec.content.ContentType == types.ContentReasoning && !ec.pinned {
			continue
		}
		out = append(out, ec)
	}
	return out
}

// project implements step 7: decode each surviving commit's blob payload
// and extract role/text via Content.RoleText.
func (c *Compiler) project(effective []effectiveCommit, includeEditAnnotations bool) ([]types.Message, []map[string]any, error) {
	messages := make([]types.Message, 0, len(effective))
	var generationConfigs []map[string]any

	for _, ec := range effective {
		blob, err := c.blobs.Get(context.Background(), ec.content.ContentHash)
		if err != nil {
			return nil, nil, fmt.Errorf("project commit %s: %w", ec.content.CommitHash, err)
		}
		content, err := types.DecodeContent(blob.PayloadJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("decode content for %s: %w", ec.content.CommitHash, err)
		}
		role, text := content.RoleText()
		if ec.edited && includeEditAnnotations {
			text += " [edited]"
		}

		msg := types.Message{Role: role, Content: text}
		if content.Type == types.ContentToolIO {
			msg.Name = content.ToolName
		}
		messages = append(messages, msg)

		if len(ec.content.GenerationConfig) > 0 {
			var cfg map[string]any
			if err := decodeJSONMap(ec.content.GenerationConfig, &cfg); err == nil {
				generationConfigs = append(generationConfigs, cfg)
			}
		}
	}
	return messages, generationConfigs, nil
}

// aggregateTail implements step 8: consecutive messages with identical
// role are merged, joining content with two newlines.
func aggregateTail(messages []types.Message) []types.Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]types.Message, 0, len(messages))
	out = append(out, messages[0])
	for _, m := range messages[1:] {
		last := &out[len(out)-1]
		if last.Role == m.Role {
			last.Content = last.Content + "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
