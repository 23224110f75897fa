// Package compress implements spec.md §4.9's compression engine: shrink a
// commit range to fit a token budget while preserving PINNED content
// verbatim and honoring retention instructions attached to IMPORTANT
// commits. The worker-pool / dry-run / retry shape is grounded on
// steveyegge-beads' internal/compact/compactor.go's
// CompactConfig{Concurrency,DryRun} and its channel-based
// CompactTier1Batch fan-out, generalized from single-issue Tier-1
// summarisation to PINNED-partitioned group summarisation with
// retention-criteria validation and a types.RetryExhausted failure mode.
// The LLM retry/backoff/telemetry shape itself lives one layer down, in
// internal/llmclient, grounded on compact/haiku.go.
package compress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

const (
	defaultConcurrency = 5
	defaultTolerance   = 500
)

// Engine runs compression plans against one tract's store.
type Engine struct {
	blobs       store.BlobStore
	commits     store.CommitStore
	refs        store.RefStore
	annotations store.AnnotationStore
	oplog       store.OperationLogStore
	chat        llmclient.ChatClient
	tokenizer   compile.TokenCounter
	concurrency int
}

// New builds a compression Engine. chat may be nil for manual-mode-only
// use (callers that always pass Options.Content).
func New(blobs store.BlobStore, commits store.CommitStore, refs store.RefStore, annotations store.AnnotationStore, oplog store.OperationLogStore, chat llmclient.ChatClient, tokenizer compile.TokenCounter) *Engine {
	return &Engine{
		blobs:       blobs,
		commits:     commits,
		refs:        refs,
		annotations: annotations,
		oplog:       oplog,
		chat:        chat,
		tokenizer:   tokenizer,
		concurrency: defaultConcurrency,
	}
}

// WithConcurrency overrides the default group-summarisation worker count.
func (e *Engine) WithConcurrency(n int) *Engine {
	if n > 0 {
		e.concurrency = n
	}
	return e
}

// Options parameterizes one Compress() call (spec.md §4.9).
type Options struct {
	// Range selection: Commits takes priority over From/ToCommit, which
	// take priority over the full chain (all three zero-valued).
	Commits    []string
	FromCommit string
	ToCommit   string

	// Preserve forces the listed commit hashes to PINNED regardless of
	// their recorded annotation.
	Preserve []string

	TwoStage bool
	Guidance string

	// Content bypasses the LLM entirely (manual mode). Rejected when the
	// range partitions into more than one group.
	Content *string

	TargetTokens int
	// Tolerance is nil-able so an explicit 0 (strict) is distinguishable
	// from "unset" (defaults to 500, spec.md §4.9 step 6).
	Tolerance  *int
	MaxRetries int
	Validator  func(summary string) (ok bool, diagnosis string)
	LLMConfig  types.LLMConfig

	Review bool
}

func (o Options) tolerance() int {
	if o.Tolerance != nil {
		return *o.Tolerance
	}
	return defaultTolerance
}

// resolveHeadCommit resolves the tract's current HEAD to a commit hash,
// following one level of attached-branch indirection (spec.md §4.3).
func resolveHeadCommit(ctx context.Context, refs store.RefStore, tractID string) (string, error) {
	head, err := refs.GetHead(ctx, tractID)
	if err != nil {
		return "", err
	}
	if head.Attached() {
		branch, err := refs.Get(ctx, tractID, *head.SymbolicTarget)
		if err != nil {
			return "", err
		}
		if branch.CommitHash == nil {
			return "", types.ErrDetachedHead
		}
		return *branch.CommitHash, nil
	}
	if head.CommitHash == nil {
		return "", types.ErrDetachedHead
	}
	return *head.CommitHash, nil
}

// Compress runs the full protocol of spec.md §4.9 steps 1-7: resolve,
// classify, partition, optionally guide and summarise, then route
// through the three-tier hook protocol. registry may be nil, in which
// case the operation always auto-approves.
//
// Returns (result, pending, nil) once the operation committed
// (auto-approved or handler-approved), with pending in the committed
// state; returns (nil, pending, nil) when review was requested or a
// handler/validator rejected the draft.
func (e *Engine) Compress(ctx context.Context, tractID string, opts Options, registry *hooks.Registry) (*types.CompressResult, *PendingCompress, error) {
	headHash, err := resolveHeadCommit(ctx, e.refs, tractID)
	if err != nil {
		return nil, nil, err
	}

	g, err := dag.Load(ctx, e.commits, tractID)
	if err != nil {
		return nil, nil, err
	}

	chain, err := firstParentChain(g, headHash)
	if err != nil {
		return nil, nil, err
	}

	rangeCommits, err := resolveRange(chain, opts)
	if err != nil {
		return nil, nil, err
	}

	classes, err := classify(ctx, e.annotations, tractID, rangeCommits, opts.Preserve)
	if err != nil {
		return nil, nil, err
	}

	segments := partition(rangeCommits, classes)

	var groups []*group
	for _, seg := range segments {
		if seg.group != nil {
			groups = append(groups, seg.group)
		}
	}
	if len(groups) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to compress in range (all PINNED or SKIP)", types.ErrCompressionError)
	}

	if opts.Content != nil {
		if len(groups) > 1 {
			return nil, nil, fmt.Errorf("%w: manual content cannot cover %d PINNED-separated groups", types.ErrCompressionError, len(groups))
		}
		groups[0].summary = *opts.Content
	} else {
		if e.chat == nil {
			return nil, nil, types.ErrLLMConfigError
		}
		for _, grp := range groups {
			textBlock, err := buildTextBlock(ctx, e.blobs, grp.commits)
			if err != nil {
				return nil, nil, err
			}
			grp.textBlock = textBlock
		}
		guidance, err := e.computeGuidance(ctx, groups, opts)
		if err != nil {
			return nil, nil, err
		}
		if err := e.summarizeGroups(ctx, groups, opts, guidance); err != nil {
			return nil, nil, err
		}
	}

	originalTokens, compressedTokens := 0, 0
	for _, grp := range groups {
		for _, c := range grp.commits {
			originalTokens += c.TokenCount
		}
		compressedTokens += e.tokenizer.CountText(grp.summary)
	}
	for _, seg := range segments {
		if seg.pinned != nil {
			compressedTokens += seg.pinned.TokenCount
		}
	}

	pending := newPendingCompress(ctx, e, tractID, headHash, rangeCommits, segments, groups, originalTokens, compressedTokens)

	if opts.Review {
		return nil, pending, nil
	}

	if registry != nil {
		if err := registry.Dispatch(ctx, hooks.EventCompress, pending, false); err != nil {
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

// computeGuidance implements step 4: an optional two-stage LLM call over
// the concatenation of every group's text block, combined with any
// caller-supplied guidance. Whether the result came from the LLM, the
// caller, or both is not recorded.
func (e *Engine) computeGuidance(ctx context.Context, groups []*group, opts Options) (string, error) {
	guidance := opts.Guidance
	if !opts.TwoStage {
		return guidance, nil
	}

	var combined strings.Builder
	for i, grp := range groups {
		if i > 0 {
			combined.WriteString("\n\n---\n\n")
		}
		combined.WriteString(grp.textBlock)
	}

	result, err := e.chat.Chat(ctx, []llmclient.ChatMessage{
		{Role: "system", Content: guidanceSystemPrompt},
		{Role: "user", Content: combined.String()},
	}, opts.LLMConfig)
	if err != nil {
		return "", fmt.Errorf("two-stage guidance: %w", err)
	}
	llmGuidance := result.Text()
	if guidance == "" {
		return llmGuidance, nil
	}
	return guidance + "\n\n" + llmGuidance, nil
}

// summarizeGroups fans groups out over a worker pool, mirroring
// compactor.go's CompactTier1Batch channel/WaitGroup shape.
func (e *Engine) summarizeGroups(ctx context.Context, groups []*group, opts Options, guidance string) error {
	workCh := make(chan *group, len(groups))
	errCh := make(chan error, len(groups))

	var wg sync.WaitGroup
	workers := e.concurrency
	if workers > len(groups) {
		workers = len(groups)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for grp := range workCh {
				errCh <- e.summarizeGroup(ctx, grp, opts, guidance)
			}
		}()
	}
	for _, grp := range groups {
		workCh <- grp
	}
	close(workCh)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// summarizeGroup implements spec.md §4.9 steps 5-6 for one group: call,
// validate, and retry with the diagnosis folded into the prompt up to
// MaxRetries, raising types.RetryExhausted on exhaustion.
func (e *Engine) summarizeGroup(ctx context.Context, grp *group, opts Options, guidance string) error {
	originalTokens := 0
	for _, c := range grp.commits {
		originalTokens += c.TokenCount
	}
	target := opts.TargetTokens
	if target <= 0 {
		target = originalTokens / 4
		if target < 50 {
			target = 50
		}
	}
	tolerance := opts.tolerance()
	retentionText := retentionInstructionText(grp.retention)

	diagnosis := ""
	for attempt := 0; ; attempt++ {
		grp.attempts = attempt + 1
		prompt := buildSummaryPrompt(grp.textBlock, target, retentionText, guidance, diagnosis)

		result, err := e.chat.Chat(ctx, []llmclient.ChatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: prompt},
		}, opts.LLMConfig)
		if err != nil {
			return fmt.Errorf("summarize group: %w", err)
		}
		candidate := result.Text()

		ok, diag := checkRetention(candidate, grp.retention)
		if ok && opts.Validator != nil {
			ok, diag = opts.Validator(candidate)
		}
		actual := e.tokenizer.CountText(candidate)
		if ok && actual > target+tolerance {
			ok = false
			diag = fmt.Sprintf("summary is %d tokens, exceeds target %d + tolerance %d", actual, target, tolerance)
		}

		if ok {
			grp.summary = candidate
			return nil
		}
		diagnosis = diag
		grp.diagnosis = diag
		if attempt >= opts.MaxRetries {
			return &types.RetryExhausted{Attempts: attempt + 1, LastDiagnosis: diagnosis}
		}
	}
}
