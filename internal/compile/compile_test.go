package compile

import (
	"context"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/types"
)

func saveDialogue(t *testing.T, st *memory.Store, tractID, role, text string, parent *string, seq int64, when time.Time) *types.Commit {
	t.Helper()
	ctx := context.Background()
	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: role, Text: text})
	if err != nil {
		t.Fatalf("EncodeContent: %v", err)
	}
	blob := types.NewBlob(payload, when)
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	c := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpAppend,
		CreatedAt:   when,
		Sequence:    seq,
	}
	hash, err := c.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	c.CommitHash = hash
	if err := st.Commits().Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return c
}

func TestCompileProjectsAndAggregates(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveDialogue(t, st, tractID, "user", "hello", nil, 1, time.Unix(0, 0))
	c1 := saveDialogue(t, st, tractID, "assistant", "hi there", &c0.CommitHash, 2, time.Unix(1, 0))
	c2 := saveDialogue(t, st, tractID, "assistant", "anything else?", &c1.CommitHash, 3, time.Unix(2, 0))

	comp := New(st.Blobs(), st.Commits(), st.Annotations(), NewEstimateTokenCounter())
	out, err := comp.Compile(ctx, tractID, c2.CommitHash, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if len(out.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 (adjacent assistant turns aggregated)", len(out.Messages))
	}
	if out.Messages[0].Role != "user" || out.Messages[0].Content != "hello" {
		t.Errorf("unexpected first message: %+v", out.Messages[0])
	}
	want := "hi there\n\nanything else?"
	if out.Messages[1].Role != "assistant" || out.Messages[1].Content != want {
		t.Errorf("unexpected second message: %+v", out.Messages[1])
	}
	if out.CommitCount != 3 {
		t.Errorf("CommitCount = %d, want 3", out.CommitCount)
	}
	if out.TokenSource != "estimate:chars/4" {
		t.Errorf("TokenSource = %q", out.TokenSource)
	}
}

func TestCompileSkipsPinnedAndSkip(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveDialogue(t, st, tractID, "user", "keep me", nil, 1, time.Unix(0, 0))
	c1 := saveDialogue(t, st, tractID, "user", "drop me", &c0.CommitHash, 2, time.Unix(1, 0))

	if err := st.Annotations().Append(ctx, &types.PriorityAnnotation{
		TractID: tractID, TargetHash: c1.CommitHash, Priority: types.PrioritySkip, CreatedAt: time.Unix(2, 0),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	comp := New(st.Blobs(), st.Commits(), st.Annotations(), NewEstimateTokenCounter())
	out, err := comp.Compile(ctx, tractID, c1.CommitHash, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "keep me" {
		t.Fatalf("expected SKIP commit dropped, got %+v", out.Messages)
	}
}

func TestCompilePinnedReasoningSurvivesDefaultFilter(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	payload, _ := types.EncodeContent(types.Content{Type: types.ContentReasoning, Text: "pinned thought"})
	blob := types.NewBlob(payload, time.Unix(0, 0))
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	c0 := &types.Commit{TractID: tractID, ContentHash: blob.ContentHash, ContentType: types.ContentReasoning, Operation: types.OpAppend, CreatedAt: time.Unix(0, 0), Sequence: 1}
	hash, _ := c0.ComputeHash()
	c0.CommitHash = hash
	if err := st.Commits().Save(ctx, c0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Annotations().Append(ctx, &types.PriorityAnnotation{
		TractID: tractID, TargetHash: c0.CommitHash, Priority: types.PriorityPinned, CreatedAt: time.Unix(1, 0),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	c1 := saveDialogue(t, st, tractID, "assistant", "final answer", &c0.CommitHash, 2, time.Unix(2, 0))

	comp := New(st.Blobs(), st.Commits(), st.Annotations(), NewEstimateTokenCounter())
	out, err := comp.Compile(ctx, tractID, c1.CommitHash, Options{IncludeReasoning: false})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "pinned thought\n\nfinal answer" {
		t.Fatalf("expected PINNED reasoning commit to survive IncludeReasoning=false, got %+v", out.Messages)
	}
}

func TestCompileDropsReasoningByDefault(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	payload, _ := types.EncodeContent(types.Content{Type: types.ContentReasoning, Text: "thinking..."})
	blob := types.NewBlob(payload, time.Unix(0, 0))
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	c0 := &types.Commit{TractID: tractID, ContentHash: blob.ContentHash, ContentType: types.ContentReasoning, Operation: types.OpAppend, CreatedAt: time.Unix(0, 0), Sequence: 1}
	hash, _ := c0.ComputeHash()
	c0.CommitHash = hash
	if err := st.Commits().Save(ctx, c0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c1 := saveDialogue(t, st, tractID, "assistant", "final answer", &c0.CommitHash, 2, time.Unix(1, 0))

	comp := New(st.Blobs(), st.Commits(), st.Annotations(), NewEstimateTokenCounter())
	out, err := comp.Compile(ctx, tractID, c1.CommitHash, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "final answer" {
		t.Fatalf("expected reasoning dropped, got %+v", out.Messages)
	}

	out, err = comp.Compile(ctx, tractID, c1.CommitHash, Options{IncludeReasoning: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "thinking...\n\nfinal answer" {
		t.Fatalf("expected reasoning included, got %+v", out.Messages)
	}
}

func TestCompileFoldsEditChain(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveDialogue(t, st, tractID, "user", "original text", nil, 1, time.Unix(0, 0))

	payload, _ := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "user", Text: "edited text"})
	blob := types.NewBlob(payload, time.Unix(1, 0))
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	edit := &types.Commit{
		TractID: tractID, ParentHash: &c0.CommitHash, ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue, Operation: types.OpEdit, EditTarget: &c0.CommitHash,
		CreatedAt: time.Unix(1, 0), Sequence: 2,
	}
	hash, _ := edit.ComputeHash()
	edit.CommitHash = hash
	if err := st.Commits().Save(ctx, edit); err != nil {
		t.Fatalf("Save: %v", err)
	}

	comp := New(st.Blobs(), st.Commits(), st.Annotations(), NewEstimateTokenCounter())
	out, err := comp.Compile(ctx, tractID, edit.CommitHash, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("expected edit folded onto single slot, got %+v", out.Messages)
	}
	if out.Messages[0].Content != "edited text" {
		t.Errorf("Content = %q, want edited content", out.Messages[0].Content)
	}
}
