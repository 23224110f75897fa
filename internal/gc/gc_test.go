package gc

import (
	"context"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/types"

	"github.com/tract-dev/tract/internal/store/memory"
)

func saveAppend(t *testing.T, st *memory.Store, tractID, role, text string, parent *string, seq int64, when time.Time) *types.Commit {
	t.Helper()
	ctx := context.Background()
	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: role, Text: text})
	if err != nil {
		t.Fatalf("EncodeContent: %v", err)
	}
	blob := types.NewBlob(payload, when)
	blob.TokenCount = len(text)
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	c := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpAppend,
		TokenCount:  blob.TokenCount,
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

func annotate(t *testing.T, st *memory.Store, tractID, hash string, priority types.Priority, when time.Time) {
	t.Helper()
	err := st.Annotations().Append(context.Background(), &types.PriorityAnnotation{
		TractID:    tractID,
		TargetHash: hash,
		Priority:   priority,
		CreatedAt:  when,
	})
	if err != nil {
		t.Fatalf("Append annotation: %v", err)
	}
}

func TestSweepDeletesUnreachableOrphans(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveAppend(t, st, tractID, "user", "hello", nil, 1, time.Unix(0, 0))
	orphan := saveAppend(t, st, tractID, "user", "abandoned branch", nil, 2, time.Unix(0, 0))
	c1 := saveAppend(t, st, tractID, "assistant", "hi", &c0.CommitHash, 3, time.Unix(1, 0))

	if err := st.Refs().UpdateHead(ctx, tractID, c1.CommitHash); err != nil {
		t.Fatalf("UpdateHead: %v", err)
	}

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog())
	result, pending, err := e.Sweep(ctx, tractID, Options{Now: time.Unix(1000, 0)}, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(result.DeletedCommits) != 1 || result.DeletedCommits[0] != orphan.CommitHash {
		t.Errorf("DeletedCommits = %v, want [%s]", result.DeletedCommits, orphan.CommitHash)
	}
	if pending.Status() != "committed" {
		t.Errorf("status = %s, want committed", pending.Status())
	}
	if _, err := st.Commits().Get(ctx, orphan.CommitHash); err == nil {
		t.Error("expected orphan commit to be deleted")
	}
	if _, err := st.Commits().Get(ctx, c1.CommitHash); err != nil {
		t.Errorf("reachable commit should survive: %v", err)
	}
}

func TestSweepRespectsRetentionWindow(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveAppend(t, st, tractID, "user", "hello", nil, 1, time.Unix(0, 0))
	if err := st.Refs().UpdateHead(ctx, tractID, c0.CommitHash); err != nil {
		t.Fatalf("UpdateHead: %v", err)
	}
	recentOrphan := saveAppend(t, st, tractID, "user", "fresh orphan", nil, 2, time.Unix(999, 0))

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog())
	result, _, err := e.Sweep(ctx, tractID, Options{OrphanRetentionDays: 30, Now: time.Unix(1000, 0)}, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(result.DeletedCommits) != 0 {
		t.Errorf("DeletedCommits = %v, want none (too young)", result.DeletedCommits)
	}
	if _, err := st.Commits().Get(ctx, recentOrphan.CommitHash); err != nil {
		t.Error("recent orphan should survive the retention window")
	}
}

func TestSweepPreservesPinnedOrphan(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveAppend(t, st, tractID, "user", "hello", nil, 1, time.Unix(0, 0))
	if err := st.Refs().UpdateHead(ctx, tractID, c0.CommitHash); err != nil {
		t.Fatalf("UpdateHead: %v", err)
	}
	pinnedOrphan := saveAppend(t, st, tractID, "user", "keep me", nil, 2, time.Unix(0, 0))
	annotate(t, st, tractID, pinnedOrphan.CommitHash, types.PriorityPinned, time.Unix(0, 0))

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog())
	result, _, err := e.Sweep(ctx, tractID, Options{Now: time.Unix(1000, 0)}, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(result.DeletedCommits) != 0 {
		t.Errorf("DeletedCommits = %v, want none (PINNED)", result.DeletedCommits)
	}
	if _, err := st.Commits().Get(ctx, pinnedOrphan.CommitHash); err != nil {
		t.Error("PINNED orphan should survive the sweep")
	}
}

func TestSweepReviewModeExclude(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"

	c0 := saveAppend(t, st, tractID, "user", "hello", nil, 1, time.Unix(0, 0))
	if err := st.Refs().UpdateHead(ctx, tractID, c0.CommitHash); err != nil {
		t.Fatalf("UpdateHead: %v", err)
	}
	orphanA := saveAppend(t, st, tractID, "user", "orphan a", nil, 2, time.Unix(0, 0))
	orphanB := saveAppend(t, st, tractID, "user", "orphan b", nil, 3, time.Unix(0, 0))

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.Annotations(), st.OperationLog())
	result, pending, err := e.Sweep(ctx, tractID, Options{Now: time.Unix(1000, 0), Review: true}, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result != nil {
		t.Fatal("review mode should not auto-commit")
	}
	pending.Exclude(orphanA.CommitHash)
	if err := pending.Approve(); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got := pending.Result()
	if len(got.DeletedCommits) != 1 || got.DeletedCommits[0] != orphanB.CommitHash {
		t.Errorf("DeletedCommits = %v, want [%s]", got.DeletedCommits, orphanB.CommitHash)
	}
	if len(got.Excluded) != 1 || got.Excluded[0] != orphanA.CommitHash {
		t.Errorf("Excluded = %v, want [%s]", got.Excluded, orphanA.CommitHash)
	}
	if _, err := st.Commits().Get(ctx, orphanA.CommitHash); err != nil {
		t.Error("excluded orphan should survive")
	}
}
