package types

import "time"

// Message is one entry in a compiled, LLM-ready message list (spec.md
// §4.8, §6).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// CompiledContext is the compiler's output value object (spec.md §6).
type CompiledContext struct {
	Messages          []Message        `json:"messages"`
	TokenCount        int              `json:"token_count"`
	CommitCount       int              `json:"commit_count"`
	TokenSource       string           `json:"token_source"`
	GenerationConfigs []map[string]any `json:"generation_configs,omitempty"`
}

// CommitInfo is a lightweight summary of a written commit, returned from
// mutating operations instead of the full Commit row.
type CommitInfo struct {
	CommitHash string    `json:"commit_hash"`
	TractID    string    `json:"tract_id"`
	Operation  Operation `json:"operation"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatResponse wraps one chat() round trip through an LLM client (spec.md
// §6), including the commit it was recorded under.
type ChatResponse struct {
	Text             string          `json:"text"`
	Usage            *Usage          `json:"usage,omitempty"`
	CommitInfo       CommitInfo      `json:"commit_info"`
	GenerationConfig LLMConfig       `json:"generation_config"`
	Reasoning        string          `json:"reasoning,omitempty"`
	ReasoningCommit  *CommitInfo     `json:"reasoning_commit,omitempty"`
}

// Usage normalizes the two token-usage wire shapes named in spec.md §6
// ({prompt_tokens,completion_tokens,total_tokens} or
// {input_tokens,output_tokens}).
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompressResult is the outcome of a committed compression (spec.md §6,
// §8 "Compress sum" testable property).
type CompressResult struct {
	CompressionID     string   `json:"compression_id"`
	OriginalTokens    int      `json:"original_tokens"`
	CompressedTokens  int      `json:"compressed_tokens"`
	SourceCommits     []string `json:"source_commits"`
	SummaryCommits    []string `json:"summary_commits"`
	PreservedCommits  []string `json:"preserved_commits"`
	CompressionRatio  float64  `json:"compression_ratio"`
	NewHead           string   `json:"new_head"`
}

// MergeResult is the outcome of a committed three-way merge (spec.md
// §4.10).
type MergeResult struct {
	MergeCommit    string   `json:"merge_commit"`
	FastForward    bool     `json:"fast_forward"`
	NoOp           bool     `json:"no_op"`
	ResolvedEdits  []string `json:"resolved_edits,omitempty"`
	ConflictCount  int      `json:"conflict_count"`
}

// RebaseResult is the outcome of a committed rebase (spec.md §4.10).
type RebaseResult struct {
	NewTip        string   `json:"new_tip"`
	ReplayedFrom  []string `json:"replayed_from"`
	ReplayedTo    []string `json:"replayed_to"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ImportResult is the outcome of a committed cherry-pick (spec.md §4.10).
type ImportResult struct {
	ImportedCommits []string `json:"imported_commits"`
	Skipped         []string `json:"skipped,omitempty"`
}

// GCResult is the outcome of a committed garbage-collection sweep
// (spec.md §4.11).
type GCResult struct {
	DeletedCommits []string `json:"deleted_commits"`
	DeletedBlobs   []string `json:"deleted_blobs"`
	Excluded       []string `json:"excluded,omitempty"`
}

// DiffResult reports the set of commits on one branch not reachable from
// another (spec.md §4.7 get_branch_commits, surfaced for audit tooling).
type DiffResult struct {
	Tip       string   `json:"tip"`
	Base      string   `json:"base"`
	Commits   []string `json:"commits"`
}

// ReorderWarningKind enumerates the compiler's reorder safety checks
// (spec.md §4.8).
type ReorderWarningKind string

const (
	WarnEditBeforeTarget   ReorderWarningKind = "edit_before_target"
	WarnResponseChainBreak ReorderWarningKind = "response_chain_break"
)

// ReorderWarning is a non-fatal finding from the compiler's reorder safety
// check (spec.md §4.8: "These are warnings, not errors — the caller decides").
type ReorderWarning struct {
	Kind       ReorderWarningKind `json:"kind"`
	CommitHash string             `json:"commit_hash"`
	Detail     string             `json:"detail,omitempty"`
}
