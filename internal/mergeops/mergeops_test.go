package mergeops

import (
	"context"
	"testing"
	"time"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/types"
)

func save(t *testing.T, st *memory.Store, tractID, role, text string, parent *string, when time.Time) *types.Commit {
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
	seq, err := st.Commits().NextSequence(ctx, tractID)
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
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

func saveEdit(t *testing.T, st *memory.Store, tractID, text string, parent *string, target string, when time.Time) *types.Commit {
	t.Helper()
	ctx := context.Background()
	payload, err := types.EncodeContent(types.Content{Type: types.ContentDialogue, Role: "assistant", Text: text})
	if err != nil {
		t.Fatalf("EncodeContent: %v", err)
	}
	blob := types.NewBlob(payload, when)
	blob.TokenCount = len(text)
	if err := st.Blobs().SaveIfAbsent(ctx, blob); err != nil {
		t.Fatalf("SaveIfAbsent: %v", err)
	}
	seq, err := st.Commits().NextSequence(ctx, tractID)
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	c := &types.Commit{
		TractID:     tractID,
		ParentHash:  parent,
		ContentHash: blob.ContentHash,
		ContentType: types.ContentDialogue,
		Operation:   types.OpEdit,
		EditTarget:  &target,
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

func setBranch(t *testing.T, st *memory.Store, tractID, branch, hash string) {
	t.Helper()
	ref := types.BranchRefName(branch)
	if err := st.Refs().SetRef(context.Background(), &types.Ref{TractID: tractID, RefName: ref, CommitHash: &hash}); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
}

func attachMain(t *testing.T, st *memory.Store, tractID string, tip *types.Commit) {
	t.Helper()
	ctx := context.Background()
	setBranch(t, st, tractID, "main", tip.CommitHash)
	if err := st.Refs().AttachHead(ctx, tractID, "main"); err != nil {
		t.Fatalf("AttachHead: %v", err)
	}
}

func fixedResolver(text string) llmclient.Resolver {
	return func(string) (llmclient.Resolution, error) {
		return llmclient.Resolution{Action: llmclient.ResolutionResolved, ContentText: text}, nil
	}
}

func TestMergeNoOp(t *testing.T) {
	st := memory.New()
	tractID := "t1"
	c0 := save(t, st, tractID, "user", "hello", nil, time.Unix(0, 0))
	attachMain(t, st, tractID, c0)
	setBranch(t, st, tractID, "feature", c0.CommitHash)

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, _, err := e.Merge(context.Background(), tractID, "feature", MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.NoOp {
		t.Error("expected NoOp merge")
	}
}

func TestMergeFastForward(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	c0 := save(t, st, tractID, "user", "hello", nil, time.Unix(0, 0))
	c1 := save(t, st, tractID, "assistant", "hi", &c0.CommitHash, time.Unix(1, 0))
	attachMain(t, st, tractID, c0)
	setBranch(t, st, tractID, "feature", c1.CommitHash)

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, _, err := e.Merge(ctx, tractID, "feature", MergeOptions{}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.FastForward || result.MergeCommit != c1.CommitHash {
		t.Errorf("result = %+v, want fast-forward to %s", result, c1.CommitHash)
	}
	head, err := st.Refs().GetHead(ctx, tractID)
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	branch, err := st.Refs().Get(ctx, tractID, *head.SymbolicTarget)
	if err != nil {
		t.Fatalf("Get branch: %v", err)
	}
	if *branch.CommitHash != c1.CommitHash {
		t.Errorf("main tip = %s, want %s", *branch.CommitHash, c1.CommitHash)
	}
}

func TestMergeThreeWayWithConflict(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	base := save(t, st, tractID, "user", "deploy status?", nil, time.Unix(0, 0))
	target := save(t, st, tractID, "assistant", "checking", &base.CommitHash, time.Unix(1, 0))

	headEdit := saveEdit(t, st, tractID, "still checking (head)", &target.CommitHash, target.CommitHash, time.Unix(2, 0))
	sourceEdit := saveEdit(t, st, tractID, "still checking (source)", &target.CommitHash, target.CommitHash, time.Unix(2, 0))

	attachMain(t, st, tractID, headEdit)
	setBranch(t, st, tractID, "feature", sourceEdit.CommitHash)

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	resolver := fixedResolver("merged: still checking")
	result, pending, err := e.Merge(ctx, tractID, "feature", MergeOptions{Resolver: resolver}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result == nil {
		t.Fatal("expected committed result")
	}
	if result.ConflictCount != 1 {
		t.Errorf("ConflictCount = %d, want 1", result.ConflictCount)
	}
	if len(result.ResolvedEdits) != 1 {
		t.Fatalf("ResolvedEdits = %v, want 1 entry", result.ResolvedEdits)
	}
	if pending.Status() != "committed" {
		t.Errorf("status = %s, want committed", pending.Status())
	}

	head, err := st.Refs().GetHead(ctx, tractID)
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	branch, err := st.Refs().Get(ctx, tractID, *head.SymbolicTarget)
	if err != nil {
		t.Fatalf("Get branch: %v", err)
	}
	if *branch.CommitHash != result.ResolvedEdits[0] {
		t.Errorf("main tip = %s, want resolved edit %s", *branch.CommitHash, result.ResolvedEdits[0])
	}
}

func TestMergeReviewModeRequiresResolution(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	base := save(t, st, tractID, "user", "deploy status?", nil, time.Unix(0, 0))
	target := save(t, st, tractID, "assistant", "checking", &base.CommitHash, time.Unix(1, 0))
	headEdit := saveEdit(t, st, tractID, "a", &target.CommitHash, target.CommitHash, time.Unix(2, 0))
	sourceEdit := saveEdit(t, st, tractID, "b", &target.CommitHash, target.CommitHash, time.Unix(2, 0))
	attachMain(t, st, tractID, headEdit)
	setBranch(t, st, tractID, "feature", sourceEdit.CommitHash)

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, pending, err := e.Merge(ctx, tractID, "feature", MergeOptions{Review: true}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result != nil {
		t.Fatal("review mode should not auto-commit")
	}
	v := pending.Validate()
	if v.OK {
		t.Fatal("expected validation to fail without a resolution")
	}
	pending.SetResolution(pending.Conflicts()[0].Key(), "manually merged")
	if !pending.Validate().OK {
		t.Fatal("expected validation to pass after SetResolution")
	}
	if err := pending.Approve(); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if pending.Result() == nil {
		t.Fatal("expected a result after approval")
	}
}

func TestRebaseReplaysOntoTarget(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	base := save(t, st, tractID, "user", "base", nil, time.Unix(0, 0))
	mainTip := save(t, st, tractID, "assistant", "main work", &base.CommitHash, time.Unix(1, 0))
	featureC1 := save(t, st, tractID, "user", "feature work 1", &base.CommitHash, time.Unix(2, 0))
	featureC2 := save(t, st, tractID, "assistant", "feature work 2", &featureC1.CommitHash, time.Unix(3, 0))

	setBranch(t, st, tractID, "main", mainTip.CommitHash)
	setBranch(t, st, tractID, "feature", featureC2.CommitHash)
	if err := st.Refs().AttachHead(ctx, tractID, "feature"); err != nil {
		t.Fatalf("AttachHead: %v", err)
	}

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, pending, err := e.Rebase(ctx, tractID, "main", RebaseOptions{}, nil)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if len(result.ReplayedTo) != 2 {
		t.Fatalf("ReplayedTo = %v, want 2 commits", result.ReplayedTo)
	}
	if pending.Status() != "committed" {
		t.Errorf("status = %s, want committed", pending.Status())
	}

	newTip, err := st.Commits().Get(ctx, result.NewTip)
	if err != nil {
		t.Fatalf("Get new tip: %v", err)
	}
	if newTip.ParentHash == nil || *newTip.ParentHash != result.ReplayedTo[0] {
		t.Error("new tip's parent should be the first replayed commit")
	}
	first, err := st.Commits().Get(ctx, result.ReplayedTo[0])
	if err != nil {
		t.Fatalf("Get first replayed: %v", err)
	}
	if first.ParentHash == nil || *first.ParentHash != mainTip.CommitHash {
		t.Error("first replayed commit should chain onto main's tip")
	}
}

func TestRebaseRejectsMergeCommitInRange(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	base := save(t, st, tractID, "user", "base", nil, time.Unix(0, 0))
	mainTip := save(t, st, tractID, "assistant", "main work", &base.CommitHash, time.Unix(1, 0))
	other := save(t, st, tractID, "user", "other", &base.CommitHash, time.Unix(1, 0))
	mergeCommit := save(t, st, tractID, "assistant", "merge", &other.CommitHash, time.Unix(2, 0))
	if err := st.Commits().SaveParent(ctx, types.CommitParent{CommitHash: mergeCommit.CommitHash, ParentHash: other.CommitHash, Position: 1}); err != nil {
		t.Fatalf("SaveParent: %v", err)
	}

	setBranch(t, st, tractID, "main", mainTip.CommitHash)
	setBranch(t, st, tractID, "feature", mergeCommit.CommitHash)
	if err := st.Refs().AttachHead(ctx, tractID, "feature"); err != nil {
		t.Fatalf("AttachHead: %v", err)
	}

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	_, _, err := e.Rebase(ctx, tractID, "main", RebaseOptions{}, nil)
	if err == nil {
		t.Fatal("expected RebaseError for merge commit in range")
	}
}

func TestImportCommitSimpleAppend(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	c0 := save(t, st, tractID, "user", "hello", nil, time.Unix(0, 0))
	attachMain(t, st, tractID, c0)
	toImport := save(t, st, tractID, "assistant", "imported", nil, time.Unix(5, 0))

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, pending, err := e.ImportCommit(ctx, tractID, toImport.CommitHash, ImportOptions{}, nil)
	if err != nil {
		t.Fatalf("ImportCommit: %v", err)
	}
	if len(result.ImportedCommits) != 1 {
		t.Fatalf("ImportedCommits = %v, want 1", result.ImportedCommits)
	}
	if pending.Status() != "committed" {
		t.Errorf("status = %s, want committed", pending.Status())
	}
	imported, err := st.Commits().Get(ctx, result.ImportedCommits[0])
	if err != nil {
		t.Fatalf("Get imported: %v", err)
	}
	if imported.ParentHash == nil || *imported.ParentHash != c0.CommitHash {
		t.Error("imported commit should chain onto current HEAD")
	}
}

func TestImportCommitEditOutsideAncestryConvertsToAppend(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	c0 := save(t, st, tractID, "user", "hello", nil, time.Unix(0, 0))
	attachMain(t, st, tractID, c0)

	foreignTarget := save(t, st, tractID, "assistant", "somewhere else", nil, time.Unix(1, 0))
	foreignEdit := saveEdit(t, st, tractID, "edited elsewhere", &foreignTarget.CommitHash, foreignTarget.CommitHash, time.Unix(2, 0))

	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, _, err := e.ImportCommit(ctx, tractID, foreignEdit.CommitHash, ImportOptions{Resolver: fixedResolver("")}, nil)
	if err != nil {
		t.Fatalf("ImportCommit: %v", err)
	}
	imported, err := st.Commits().Get(ctx, result.ImportedCommits[0])
	if err != nil {
		t.Fatalf("Get imported: %v", err)
	}
	if imported.Operation != types.OpAppend {
		t.Errorf("Operation = %s, want APPEND", imported.Operation)
	}
	if imported.EditTarget != nil {
		t.Error("EditTarget should be cleared on conversion")
	}
	if len(imported.MetadataJSON) == 0 {
		t.Error("expected original operation/target recorded in metadata")
	}
}

func TestImportCommitSkip(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tractID := "t1"
	c0 := save(t, st, tractID, "user", "hello", nil, time.Unix(0, 0))
	attachMain(t, st, tractID, c0)

	foreignTarget := save(t, st, tractID, "assistant", "somewhere else", nil, time.Unix(1, 0))
	foreignEdit := saveEdit(t, st, tractID, "edited elsewhere", &foreignTarget.CommitHash, foreignTarget.CommitHash, time.Unix(2, 0))

	skipResolver := func(string) (llmclient.Resolution, error) {
		return llmclient.Resolution{Action: llmclient.ResolutionSkip}, nil
	}
	e := New(st.Blobs(), st.Commits(), st.Refs(), st.OperationLog(), nil, compile.NewEstimateTokenCounter())
	result, pending, err := e.ImportCommit(ctx, tractID, foreignEdit.CommitHash, ImportOptions{Resolver: skipResolver}, nil)
	if err != nil {
		t.Fatalf("ImportCommit: %v", err)
	}
	if pending != nil {
		t.Error("skip should not produce a pending operation")
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != foreignEdit.CommitHash {
		t.Errorf("Skipped = %v, want [%s]", result.Skipped, foreignEdit.CommitHash)
	}
}
