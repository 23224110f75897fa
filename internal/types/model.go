// Package types holds Tract's data model (spec.md §3): the immutable
// Blob/Commit graph, refs, annotations, tags, operation-event provenance,
// and spawn pointers, plus the sealed Content sum type (content.go) and
// the shared error vocabulary (errors.go).
package types

import (
	"fmt"
	"time"
)

// Blob is an immutable, content-addressed payload shared across commits
// and tracts (spec.md §3).
type Blob struct {
	ContentHash string    `json:"content_hash"`
	PayloadJSON []byte    `json:"payload_json"`
	ByteSize    int64     `json:"byte_size"`
	TokenCount  int       `json:"token_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBlob computes ContentHash and ByteSize from payload and wraps it into
// a Blob. TokenCount must be filled in by the caller (it depends on a
// pluggable tokenizer, spec.md §4.6) before the blob is saved.
func NewBlob(payload []byte, createdAt time.Time) *Blob {
	return &Blob{
		ContentHash: Sha256Hex(payload),
		PayloadJSON: payload,
		ByteSize:    int64(len(payload)),
		CreatedAt:   createdAt,
	}
}

// Operation is the two commit operations (spec.md Glossary).
type Operation string

const (
	OpAppend Operation = "APPEND"
	OpEdit   Operation = "EDIT"
)

// Commit is an immutable DAG node binding a blob, a first-parent pointer,
// and metadata (spec.md §3). Additional (merge) parents live in a side
// table, see CommitParent.
type Commit struct {
	CommitHash         string            `json:"commit_hash"`
	TractID            string            `json:"tract_id"`
	ParentHash         *string           `json:"parent_hash,omitempty"`
	ContentHash        string            `json:"content_hash"`
	ContentType        ContentType       `json:"content_type"`
	Operation          Operation         `json:"operation"`
	EditTarget         *string           `json:"edit_target,omitempty"`
	Message            string            `json:"message,omitempty"`
	TokenCount         int               `json:"token_count"`
	MetadataJSON       []byte            `json:"metadata_json,omitempty"`
	GenerationConfig   []byte            `json:"generation_config_json,omitempty"`
	Tags               []string          `json:"tags_json,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	Sequence           int64             `json:"sequence"`
}

// hashInput is the exact field set spec.md §3 defines the commit hash
// over. Sequence is added per the Open Question decision in DESIGN.md
// (#1): the reference hash input is clock-skew-collidable across
// processes sharing a DB at identical timestamps, so a monotonic
// per-tract sequence counter is folded into the hash alongside tract_id.
type hashInput struct {
	TractID          string    `json:"tract_id"`
	Sequence         int64     `json:"sequence"`
	Parent           *string   `json:"parent,omitempty"`
	ContentHash      string    `json:"content_hash"`
	Operation        Operation `json:"operation"`
	EditTarget       *string   `json:"edit_target,omitempty"`
	Metadata         []byte    `json:"metadata,omitempty"`
	GenerationConfig []byte    `json:"generation_config,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ComputeHash derives CommitHash from the commit's immutable fields
// (spec.md §3 invariant 1: "a commit's hash is a pure function of its
// immutable fields"). Callers must set TractID, Sequence, ParentHash,
// ContentHash, Operation, EditTarget, MetadataJSON, GenerationConfig, and
// CreatedAt before calling this.
func (c *Commit) ComputeHash() (string, error) {
	in := hashInput{
		TractID:          c.TractID,
		Sequence:         c.Sequence,
		Parent:           c.ParentHash,
		ContentHash:      c.ContentHash,
		Operation:        c.Operation,
		EditTarget:       c.EditTarget,
		Metadata:         c.MetadataJSON,
		GenerationConfig: c.GenerationConfig,
		CreatedAt:        c.CreatedAt,
	}
	canon, err := CanonicalJSON(in)
	if err != nil {
		return "", fmt.Errorf("canonicalize commit hash input: %w", err)
	}
	return Sha256Hex(canon), nil
}

// CommitParent is the side table for merge-commit parent edges (spec.md
// §3: "position 0 ≡ first parent"). Position-0 rows are redundant with
// Commit.ParentHash and exist so is-ancestor/merge-base queries don't
// need a UNION between the commit table and this one for first-parent
// edges — every parent edge, including the first, is represented here.
type CommitParent struct {
	CommitHash string `json:"commit_hash"`
	ParentHash string `json:"parent_hash"`
	Position   int    `json:"position"`
}

// Ref is a named pointer to a commit, or symbolically to another ref
// (spec.md §3). HEAD is the distinguished ref with RefName "HEAD".
type Ref struct {
	TractID        string  `json:"tract_id"`
	RefName        string  `json:"ref_name"`
	CommitHash     *string `json:"commit_hash,omitempty"`
	SymbolicTarget *string `json:"symbolic_target,omitempty"`
}

// Attached reports whether this ref (expected to be HEAD) points at a
// branch ref rather than directly at a commit.
func (r Ref) Attached() bool { return r.SymbolicTarget != nil }

const headRefName = "HEAD"

// BranchRefName builds the full ref name for a branch ("refs/heads/<name>").
func BranchRefName(branch string) string { return "refs/heads/" + branch }

// Priority is the per-commit compile/compression steering annotation
// (spec.md §3, Glossary).
type Priority string

const (
	PriorityPinned    Priority = "PINNED"
	PriorityNormal    Priority = "NORMAL"
	PrioritySkip      Priority = "SKIP"
	PriorityImportant Priority = "IMPORTANT"
)

// MatchMode selects the dialect used to test RetentionCriteria.MatchPatterns
// against a candidate summary (spec.md §4.9 step 6, §9 Open Question #3:
// regex uses Go's RE2-based regexp package).
type MatchMode string

const (
	MatchSubstring MatchMode = "substring"
	MatchRegex     MatchMode = "regex"
)

// RetentionCriteria are deterministic post-conditions a compression
// summary must satisfy (spec.md §3).
type RetentionCriteria struct {
	MatchPatterns []string  `json:"match_patterns"`
	MatchMode     MatchMode `json:"match_mode"`
	Instructions  string    `json:"instructions,omitempty"`
}

// PriorityAnnotation is an append-only priority record on a commit
// (spec.md §3). The latest by CreatedAt per TargetHash wins.
type PriorityAnnotation struct {
	ID         int64              `json:"id"`
	TractID    string             `json:"tract_id"`
	TargetHash string             `json:"target_hash"`
	Priority   Priority           `json:"priority"`
	Retention  *RetentionCriteria `json:"retention_json,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// TagAnnotation is a mutable tag event (add or remove) on a commit
// (spec.md §3, §4.5). Untag events are recorded as a TagAnnotation with
// Removed set, preserving the append-only log.
type TagAnnotation struct {
	TractID   string    `json:"tract_id"`
	TargetHash string   `json:"target_hash"`
	TagName   string    `json:"tag_name"`
	Removed   bool      `json:"removed"`
	CreatedAt time.Time `json:"created_at"`
}

// TagRegistryEntry gates strict-mode tag validation at commit time
// (spec.md §4.5).
type TagRegistryEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AutoCreated bool   `json:"auto_created"`
}

// BaseTags are pre-seeded into every tract's tag registry (spec.md §4.5).
var BaseTags = []string{
	"instruction", "tool_call", "tool_result", "reasoning",
	"revision", "observation", "decision", "summary",
}

// OperationEventType enumerates structural rewrites that write provenance
// (spec.md §3).
type OperationEventType string

const (
	EventCompress   OperationEventType = "compress"
	EventReorganize OperationEventType = "reorganize"
	EventImport     OperationEventType = "import"
	EventMerge      OperationEventType = "merge"
	EventGC         OperationEventType = "gc"
)

// OperationEvent is a provenance row linking a rewrite's source commits to
// its result commits (spec.md §3, §4.13).
type OperationEvent struct {
	EventID           string             `json:"event_id"`
	TractID           string             `json:"tract_id"`
	EventType         OperationEventType `json:"event_type"`
	BranchName        string             `json:"branch_name,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	OriginalTokens    int                `json:"original_tokens"`
	CompressedTokens  int                `json:"compressed_tokens"`
	ParamsJSON        []byte             `json:"params_json,omitempty"`
}

// OperationEventRole distinguishes source from result commits in the
// event/commit child table (spec.md §3).
type OperationEventRole string

const (
	RoleSource OperationEventRole = "source"
	RoleResult OperationEventRole = "result"
)

// OperationEventCommit is one row of the event→commit child table
// (spec.md §3).
type OperationEventCommit struct {
	EventID    string             `json:"event_id"`
	CommitHash string             `json:"commit_hash"`
	Role       OperationEventRole `json:"role"`
	Position   int                `json:"position"`
}

// InheritanceMode controls what a spawned child tract inherits from its
// parent at creation time (spec.md §3).
type InheritanceMode string

const (
	InheritNone         InheritanceMode = "none"
	InheritHeadSnapshot InheritanceMode = "head_snapshot"
	InheritFullClone    InheritanceMode = "full_clone"
)

// SpawnPointer records a parent/child relationship between two tracts
// sharing one DB file (spec.md §3, §1: "the spawn-pointer table and
// cross-tract queries").
type SpawnPointer struct {
	ParentTractID   string          `json:"parent_tract_id"`
	ParentCommit    *string         `json:"parent_commit_hash,omitempty"`
	ChildTractID    string          `json:"child_tract_id"`
	Purpose         string          `json:"purpose,omitempty"`
	InheritanceMode InheritanceMode `json:"inheritance_mode"`
	DisplayName     string          `json:"display_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SchemaVersionKey is the reserved tract-metadata key carrying the
// monotonic schema version (spec.md §6).
const SchemaVersionKey = "schema_version"
