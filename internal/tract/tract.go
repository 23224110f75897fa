// Package tract wires the DAG, compile, compress, mergeops, gc, hooks,
// and oplog packages into the single public handle spec.md calls a
// "Tract": one instance per goroutine, one writer per database file
// (spec.md §5). There is no teacher analogue for this facade (beads.go
// is a thin re-export of storage constructors, not an operation
// surface); this package is grounded directly on spec.md §4's component
// design, composing the packages the rest of the tree already builds
// rather than reimplementing any of their logic.
package tract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/compress"
	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/gc"
	"github.com/tract-dev/tract/internal/hooks"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/mergeops"
	"github.com/tract-dev/tract/internal/oplog"
	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/store/sqlite"
	"github.com/tract-dev/tract/internal/telemetry"
	"github.com/tract-dev/tract/internal/tractconfig"
	"github.com/tract-dev/tract/internal/types"

	"go.uber.org/zap"
)

// Tract is a handle onto one tract_id's DAG within a shared store. It is
// not concurrency-safe internally (spec.md §5): callers open one Tract
// per goroutine/task against the same DB file.
type Tract struct {
	id    string
	store store.Store
	owns  bool // true if Close should close the underlying store

	compiler *compile.Compiler
	compress *compress.Engine
	merge    *mergeops.Engine
	gc       *gc.Engine
	oplog    *oplog.Reader
	hooks    *hooks.Registry

	tokenizer compile.TokenCounter
	chat      llmclient.ChatClient
	cfg       *tractconfig.Config

	log *zap.Logger
}

// Open wires a Tract over an already-open store.Store (the in-memory
// double in tests, or a *sqlite.Store the caller owns and will Close
// itself). cfg may be nil, in which case built-in defaults apply.
func Open(id string, st store.Store, cfg *tractconfig.Config, chat llmclient.ChatClient) *Tract {
	if cfg == nil {
		c := tractconfig.Config{TokenizerEncoding: "cl100k_base", CommitReasoning: true}
		cfg = &c
	}
	tokenizer := compile.NewEstimateTokenCounter()
	t := &Tract{
		id:        id,
		store:     st,
		cfg:       cfg,
		tokenizer: tokenizer,
		chat:      chat,
		hooks:     hooks.NewRegistry(),
		log:       telemetry.Logger().Named("tract"),
	}
	t.compiler = compile.New(st.Blobs(), st.Commits(), st.Annotations(), tokenizer)
	t.compress = compress.New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog(), chat, tokenizer)
	t.merge = mergeops.New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), chat, tokenizer)
	t.gc = gc.New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog())
	t.oplog = oplog.New(st.OperationLog())
	return t
}

// OpenSQLite opens (or creates) the SQLite-backed store at cfg.DBPath,
// enforcing the single-writer lockfile discipline (spec.md §5), and
// wires a Tract that owns and will close it.
func OpenSQLite(ctx context.Context, id string, cfg *tractconfig.Config, chat llmclient.ChatClient) (*Tract, error) {
	st, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	t := Open(id, st, cfg, chat)
	t.owns = true
	return t, nil
}

// ID returns the tract_id this handle operates on.
func (t *Tract) ID() string { return t.id }

// Hooks returns the handler registry for on(event, handler) registration
// (spec.md §4.12).
func (t *Tract) Hooks() *hooks.Registry { return t.hooks }

// Close releases the underlying store if this Tract opened it.
func (t *Tract) Close() error {
	if !t.owns {
		return nil
	}
	return t.store.Close()
}

// CommitOptions parameterizes CreateCommit (spec.md §3's commit fields
// beyond content/operation/parent, which CreateCommit derives itself).
type CommitOptions struct {
	Message          string
	Metadata         map[string]any
	GenerationConfig *types.LLMConfig
	Tags             []string
	EditTarget       string // non-empty selects Operation=EDIT
	CreatedAt        time.Time
}

// CreateCommit implements spec.md §3's create_commit lifecycle event:
// encode content into a (possibly deduplicated) blob, append a commit
// row with a hash computed over its immutable fields, and advance HEAD.
// This is the one primitive every higher-level helper in this package
// (System/User/Assistant/ToolCall/ToolResult/Edit) funnels through; the
// rewrite engines' recreateCommit/replayCommit/emitSummaryCommit write
// their commits through the stores directly.
func (t *Tract) CreateCommit(ctx context.Context, content types.Content, opts CommitOptions) (*types.CommitInfo, error) {
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	payload, err := types.EncodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	blob := types.NewBlob(payload, createdAt)
	blob.TokenCount = t.tokenizer.CountText(string(payload))
	if err := t.store.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		return nil, fmt.Errorf("save blob: %w", err)
	}

	parentHash, err := t.resolveParent(ctx)
	if err != nil {
		return nil, err
	}

	var metaJSON []byte
	if len(opts.Metadata) > 0 {
		metaJSON, err = types.CanonicalJSON(opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
	}
	var genJSON []byte
	if opts.GenerationConfig != nil {
		genJSON, err = types.CanonicalJSON(opts.GenerationConfig.ToDict())
		if err != nil {
			return nil, fmt.Errorf("encode generation_config: %w", err)
		}
	}

	operation := types.OpAppend
	var editTarget *string
	if opts.EditTarget != "" {
		operation = types.OpEdit
		editTarget = &opts.EditTarget
	}

	seq, err := t.store.Commits().NextSequence(ctx, t.id)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	commit := &types.Commit{
		TractID:          t.id,
		ParentHash:       parentHash,
		ContentHash:      blob.ContentHash,
		ContentType:      content.Type,
		Operation:        operation,
		EditTarget:       editTarget,
		Message:          opts.Message,
		TokenCount:       blob.TokenCount,
		MetadataJSON:     metaJSON,
		GenerationConfig: genJSON,
		Tags:             opts.Tags,
		CreatedAt:        createdAt,
		Sequence:         seq,
	}
	hash, err := commit.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute commit hash: %w", err)
	}
	commit.CommitHash = hash

	if err := t.store.Commits().Save(ctx, commit); err != nil {
		return nil, fmt.Errorf("save commit: %w", err)
	}
	if parentHash != nil {
		if err := t.store.Commits().SaveParent(ctx, types.CommitParent{
			CommitHash: hash, ParentHash: *parentHash, Position: 0,
		}); err != nil {
			return nil, fmt.Errorf("save parent edge: %w", err)
		}
	}
	if err := t.store.Refs().UpdateHead(ctx, t.id, hash); err != nil {
		return nil, fmt.Errorf("update head: %w", err)
	}

	t.log.Info("commit created",
		zap.String("tract_id", t.id), zap.String("commit_hash", hash),
		zap.String("operation", string(operation)), zap.String("content_type", string(content.Type)))

	return &types.CommitInfo{CommitHash: hash, TractID: t.id, Operation: operation, CreatedAt: createdAt}, nil
}

// resolveParent returns HEAD's commit hash, or nil for the tract's first
// commit (spec.md §4.3: UpdateHead creates HEAD-symbolic→main on the
// first commit, so a missing HEAD ref here is the empty-tract case, not
// an error).
func (t *Tract) resolveParent(ctx context.Context) (*string, error) {
	hash, err := dag.ResolveHead(ctx, t.store.Refs(), t.id)
	if err != nil {
		if errors.Is(err, types.ErrRefNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	return &hash, nil
}

// System records a system/instruction message (spec.md §3 content type
// "instruction").
func (t *Tract) System(ctx context.Context, text string, opts CommitOptions) (*types.CommitInfo, error) {
	return t.CreateCommit(ctx, types.Content{Type: types.ContentInstruction, Role: "system", Text: text}, opts)
}

// User records a user-role dialogue message.
func (t *Tract) User(ctx context.Context, text string, opts CommitOptions) (*types.CommitInfo, error) {
	return t.CreateCommit(ctx, types.Content{Type: types.ContentDialogue, Role: "user", Text: text}, opts)
}

// Assistant records an assistant-role dialogue message.
func (t *Tract) Assistant(ctx context.Context, text string, opts CommitOptions) (*types.CommitInfo, error) {
	return t.CreateCommit(ctx, types.Content{Type: types.ContentDialogue, Role: "assistant", Text: text}, opts)
}

// ToolCall records an assistant tool invocation (spec.md's tool_io
// content type, request half).
func (t *Tract) ToolCall(ctx context.Context, calls []types.ToolCall, opts CommitOptions) (*types.CommitInfo, error) {
	return t.CreateCommit(ctx, types.Content{Type: types.ContentToolIO, ToolCalls: calls}, opts)
}

// ToolResult records a tool's output against the call that requested it
// (spec.md's tool_io content type, response half).
func (t *Tract) ToolResult(ctx context.Context, toolName, toolCallID string, output []byte, opts CommitOptions) (*types.CommitInfo, error) {
	return t.CreateCommit(ctx, types.Content{
		Type: types.ContentToolIO, ToolName: toolName, ToolCallID: toolCallID, ToolOutput: output,
	}, opts)
}

// Edit records an EDIT commit superseding targetHash's content (spec.md
// §4.8's edit-chain folding resolves the effective content at compile
// time; the target commit itself is never mutated).
func (t *Tract) Edit(ctx context.Context, targetHash string, content types.Content, opts CommitOptions) (*types.CommitInfo, error) {
	opts.EditTarget = targetHash
	return t.CreateCommit(ctx, content, opts)
}

// SetPriority appends a priority annotation over targetHash (spec.md
// §4.4: append-only, latest by created_at wins).
func (t *Tract) SetPriority(ctx context.Context, targetHash string, priority types.Priority, retention *types.RetentionCriteria, reason string) error {
	return t.store.Annotations().Append(ctx, &types.PriorityAnnotation{
		TractID: t.id, TargetHash: targetHash, Priority: priority,
		Retention: retention, Reason: reason, CreatedAt: time.Now().UTC(),
	})
}

// AddTag records a tag-add event on targetHash (spec.md §4.5). If
// strictTags is configured, tagName must already be registered.
func (t *Tract) AddTag(ctx context.Context, targetHash, tagName string) error {
	if t.cfg.StrictTags {
		ok, err := t.store.Tags().IsRegistered(ctx, t.id, tagName)
		if err != nil {
			return fmt.Errorf("check tag registration: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrTagNotRegistered, tagName)
		}
	}
	return t.store.Tags().AddTag(ctx, &types.TagAnnotation{
		TractID: t.id, TargetHash: targetHash, TagName: tagName, CreatedAt: time.Now().UTC(),
	})
}

// RemoveTag records a tag-remove event on targetHash (spec.md §4.5).
func (t *Tract) RemoveTag(ctx context.Context, targetHash, tagName string) error {
	now := time.Now().UTC()
	return t.store.Tags().RemoveTag(ctx, t.id, targetHash, tagName, types.TagAnnotation{
		TractID: t.id, TargetHash: targetHash, TagName: tagName, Removed: true, CreatedAt: now,
	})
}
