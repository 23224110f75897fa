package compile

import "github.com/tract-dev/tract/internal/types"

// TokenCounter counts tokens for a single string and for a compiled
// message list, and reports a stable source identifier (spec.md §4.6,
// §6). Callers treat any source not prefixed "api:" as an estimate.
type TokenCounter interface {
	CountText(text string) int
	CountMessages(messages []types.Message) int
	Source() string
}
