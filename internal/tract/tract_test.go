package tract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/tractconfig"
	"github.com/tract-dev/tract/internal/types"
)

func newTestTract(t *testing.T) *Tract {
	t.Helper()
	return Open("t-test", memory.New(), nil, nil)
}

func testConfig() *tractconfig.Config {
	return &tractconfig.Config{TokenizerEncoding: "cl100k_base", CommitReasoning: true}
}

func TestCreateCommitFirstHasNoParent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	info, err := tr.User(ctx, "hello", CommitOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, info.CommitHash)
	require.Equal(t, types.OpAppend, info.Operation)

	head, err := tr.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, info.CommitHash, head)
}

func TestCreateCommitChainsParent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	first, err := tr.User(ctx, "hi", CommitOptions{})
	require.NoError(t, err)
	second, err := tr.Assistant(ctx, "hello yourself", CommitOptions{})
	require.NoError(t, err)
	require.NotEqual(t, first.CommitHash, second.CommitHash)

	head, err := tr.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, second.CommitHash, head)
}

func TestEditSetsEditTargetOperation(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	original, err := tr.User(ctx, "typo", CommitOptions{})
	require.NoError(t, err)

	edited, err := tr.Edit(ctx, original.CommitHash, types.Content{
		Type: types.ContentDialogue, Role: "user", Text: "fixed",
	}, CommitOptions{})
	require.NoError(t, err)
	require.Equal(t, types.OpEdit, edited.Operation)
}

func TestAddTagRejectsUnregisteredWhenStrict(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	cfg := testConfig()
	cfg.StrictTags = true
	tr := Open("t-strict", st, cfg, nil)

	commit, err := tr.User(ctx, "hi", CommitOptions{})
	require.NoError(t, err)

	err = tr.AddTag(ctx, commit.CommitHash, "unregistered")
	require.ErrorIs(t, err, types.ErrTagNotRegistered)

	require.NoError(t, st.Tags().RegisterTag(ctx, "t-strict", types.TagRegistryEntry{Name: "known"}))
	require.NoError(t, tr.AddTag(ctx, commit.CommitHash, "known"))
}

func TestBranchLifecycle(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	commit, err := tr.User(ctx, "hi", CommitOptions{})
	require.NoError(t, err)

	require.NoError(t, tr.CreateBranch(ctx, "feature", commit.CommitHash))
	err = tr.CreateBranch(ctx, "feature", commit.CommitHash)
	require.ErrorIs(t, err, types.ErrBranchExists)

	require.NoError(t, tr.Checkout(ctx, "feature"))
	branches, err := tr.ListBranches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2) // main + feature

	require.NoError(t, tr.DetachCheckout(ctx, commit.CommitHash))
}

func TestLogFiltersByQuery(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	_, err := tr.User(ctx, "hello world", CommitOptions{})
	require.NoError(t, err)
	_, err = tr.Assistant(ctx, "hi there", CommitOptions{})
	require.NoError(t, err)

	views, err := tr.Log(ctx, LogOptions{Query: `operation=append`})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, types.OpAppend, views[0].Commit.Operation)
}

func TestLogLimit(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	for i := 0; i < 5; i++ {
		_, err := tr.User(ctx, "msg", CommitOptions{})
		require.NoError(t, err)
	}
	views, err := tr.Log(ctx, LogOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, views, 2)
}
