package compile

import "github.com/tract-dev/tract/internal/types"

// CompileSnapshot is an incremental compile cache keyed to the commit it
// was last extended to (spec.md §4.8: "a plain APPEND onto the cached
// head extends the snapshot in place; anything else invalidates it").
type CompileSnapshot struct {
	TractID    string
	HeadHash   string
	Messages   []types.Message
	TokenCount int
	CommitCount int
	source     string
}

// CanExtend reports whether next is a pure-APPEND child of the snapshot's
// current head with no priority/content-type complications, i.e. whether
// Extend can run without re-running the full pipeline.
func (s *CompileSnapshot) CanExtend(next *types.Commit, ann *types.PriorityAnnotation, includeReasoning bool) bool {
	if next.Operation != types.OpAppend {
		return false
	}
	if next.ParentHash == nil || *next.ParentHash != s.HeadHash {
		return false
	}
	if ann != nil && ann.Priority == types.PrioritySkip {
		return false
	}
	if !includeReasoning && next.ContentType == types.ContentReasoning {
		// The commit is dropped from the compiled context, but the
		// snapshot's head still advances past it below.
		return true
	}
	return true
}

// Extend appends one already-projected message onto the snapshot and
// advances its head, used by the append() fast path to avoid recompiling
// from scratch on every turn (spec.md §4.8, §5 incremental-compile note).
func (s *CompileSnapshot) Extend(next *types.Commit, msg *types.Message, tokenizer TokenCounter) {
	s.HeadHash = next.CommitHash
	s.CommitCount++
	if msg == nil {
		return // dropped by content-type filtering; head still advances
	}
	if len(s.Messages) > 0 {
		last := &s.Messages[len(s.Messages)-1]
		if last.Role == msg.Role {
			last.Content = last.Content + "\n\n" + msg.Content
			s.TokenCount = tokenizer.CountMessages(s.Messages)
			return
		}
	}
	s.Messages = append(s.Messages, *msg)
	s.TokenCount = tokenizer.CountMessages(s.Messages)
}

// Invalidated reports whether the snapshot must be discarded and
// recompiled from scratch. It only compares newHead with the snapshot's
// head: a priority or tag annotation change that leaves HEAD in place is
// not detected.
func (s *CompileSnapshot) Invalidated(newHead string) bool {
	return newHead != s.HeadHash
}

// ToCompiledContext materializes the snapshot as the compiler's public
// output value object.
func (s *CompileSnapshot) ToCompiledContext(tokenizer TokenCounter) *types.CompiledContext {
	return &types.CompiledContext{
		Messages:    append([]types.Message(nil), s.Messages...),
		TokenCount:  s.TokenCount,
		CommitCount: s.CommitCount,
		TokenSource: tokenizer.Source(),
	}
}
