package dag

import (
	"context"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/types"
)

func mustCommit(t *testing.T, st *memory.Store, tractID string, parent *string, seq int64, when time.Time) *types.Commit {
	t.Helper()
	c := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: "deadbeef",
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
	if err := st.Commits().Save(context.Background(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return c
}

func TestFindMergeBase(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	base := mustCommit(t, st, "t1", nil, 1, time.Unix(0, 0))

	f1 := mustCommit(t, st, "t1", &base.CommitHash, 2, time.Unix(1, 0))
	m1 := mustCommit(t, st, "t1", &base.CommitHash, 3, time.Unix(2, 0))

	g, err := Load(ctx, st.Commits(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := g.FindMergeBase(m1.CommitHash, f1.CommitHash)
	if !ok {
		t.Fatal("expected a merge base")
	}
	if got != base.CommitHash {
		t.Errorf("merge base = %s, want %s", got, base.CommitHash)
	}
}

func TestIsAncestor(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	a := mustCommit(t, st, "t1", nil, 1, time.Unix(0, 0))
	b := mustCommit(t, st, "t1", &a.CommitHash, 2, time.Unix(1, 0))

	g, err := Load(ctx, st.Commits(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !g.IsAncestor(a.CommitHash, b.CommitHash) {
		t.Error("expected a to be an ancestor of b")
	}
	if g.IsAncestor(b.CommitHash, a.CommitHash) {
		t.Error("b must not be an ancestor of a")
	}
}

func TestGetBranchCommits(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	base := mustCommit(t, st, "t1", nil, 1, time.Unix(0, 0))
	f1 := mustCommit(t, st, "t1", &base.CommitHash, 2, time.Unix(1, 0))
	f2 := mustCommit(t, st, "t1", &f1.CommitHash, 3, time.Unix(2, 0))

	g, err := Load(ctx, st.Commits(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := g.GetBranchCommits(f2.CommitHash, base.CommitHash)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].CommitHash != f1.CommitHash || got[1].CommitHash != f2.CommitHash {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestFindMergeBaseDisjoint(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	mustCommit(t, st, "t1", nil, 1, time.Unix(0, 0))
	mustCommit(t, st, "t2", nil, 1, time.Unix(0, 0))

	g1, err := Load(ctx, st.Commits(), "t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := g1.FindMergeBase("nonexistent-a", "nonexistent-b"); ok {
		t.Error("expected no merge base for disjoint commits")
	}
}
