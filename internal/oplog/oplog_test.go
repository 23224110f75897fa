package oplog

import (
	"context"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/types"
)

func TestForCommitReturnsEvent(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	event := &types.OperationEvent{
		EventID:          "ev1",
		TractID:          "t1",
		EventType:        types.EventCompress,
		CreatedAt:        time.Unix(10, 0),
		OriginalTokens:   100,
		CompressedTokens: 20,
	}
	commits := []types.OperationEventCommit{
		{EventID: "ev1", CommitHash: "src1", Role: types.RoleSource, Position: 0},
		{EventID: "ev1", CommitHash: "src2", Role: types.RoleSource, Position: 1},
		{EventID: "ev1", CommitHash: "res1", Role: types.RoleResult, Position: 0},
	}
	if err := st.OperationLog().SaveEvent(ctx, event, commits); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}

	r := New(st.OperationLog())
	got, err := r.ForCommit(ctx, "src1")
	if err != nil {
		t.Fatalf("ForCommit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].EventID != "ev1" {
		t.Errorf("EventID = %s, want ev1", got[0].EventID)
	}
	if len(got[0].Sources) != 2 || len(got[0].Results) != 1 {
		t.Errorf("Sources=%v Results=%v, want 2/1", got[0].Sources, got[0].Results)
	}
}

func TestForRangeDeduplicatesAndOrdersNewestFirst(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	older := &types.OperationEvent{EventID: "ev-old", TractID: "t1", EventType: types.EventMerge, CreatedAt: time.Unix(1, 0)}
	newer := &types.OperationEvent{EventID: "ev-new", TractID: "t1", EventType: types.EventReorganize, CreatedAt: time.Unix(2, 0)}
	if err := st.OperationLog().SaveEvent(ctx, older, []types.OperationEventCommit{
		{EventID: "ev-old", CommitHash: "a", Role: types.RoleSource, Position: 0},
		{EventID: "ev-old", CommitHash: "b", Role: types.RoleResult, Position: 0},
	}); err != nil {
		t.Fatalf("SaveEvent older: %v", err)
	}
	if err := st.OperationLog().SaveEvent(ctx, newer, []types.OperationEventCommit{
		{EventID: "ev-new", CommitHash: "b", Role: types.RoleSource, Position: 0},
		{EventID: "ev-new", CommitHash: "c", Role: types.RoleResult, Position: 0},
	}); err != nil {
		t.Fatalf("SaveEvent newer: %v", err)
	}

	r := New(st.OperationLog())
	got, err := r.ForRange(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ForRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (deduplicated)", len(got))
	}
	if got[0].EventID != "ev-new" || got[1].EventID != "ev-old" {
		t.Errorf("order = [%s, %s], want [ev-new, ev-old]", got[0].EventID, got[1].EventID)
	}
}
