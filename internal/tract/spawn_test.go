package tract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/types"
)

func TestSpawnNoneHasEmptyChild(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)
	_, err := tr.User(ctx, "parent context", CommitOptions{})
	require.NoError(t, err)

	sp, child, err := tr.Spawn(ctx, SpawnOptions{Purpose: "sub task", InheritanceMode: types.InheritNone})
	require.NoError(t, err)
	require.NotEqual(t, tr.id, sp.ChildTractID)
	require.Equal(t, sp.ChildTractID, child.ID())

	_, err = child.Head(ctx)
	require.ErrorIs(t, err, types.ErrRefNotFound)
}

func TestSpawnHeadSnapshotCopiesOneCommit(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)
	_, err := tr.User(ctx, "parent message one", CommitOptions{})
	require.NoError(t, err)
	_, err = tr.Assistant(ctx, "parent message two", CommitOptions{})
	require.NoError(t, err)

	_, child, err := tr.Spawn(ctx, SpawnOptions{Purpose: "snapshot child", InheritanceMode: types.InheritHeadSnapshot})
	require.NoError(t, err)

	views, err := child.Log(ctx, LogOptions{})
	require.NoError(t, err)
	require.Len(t, views, 1)

	compiled, err := child.Compile(ctx, compile.Options{})
	require.NoError(t, err)
	require.Len(t, compiled.Messages, 1)
	require.Equal(t, "parent message two", compiled.Messages[0].Content)
}

func TestSpawnFullCloneCopiesAllCommits(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)
	_, err := tr.User(ctx, "one", CommitOptions{})
	require.NoError(t, err)
	_, err = tr.Assistant(ctx, "two", CommitOptions{})
	require.NoError(t, err)
	_, err = tr.User(ctx, "three", CommitOptions{})
	require.NoError(t, err)

	_, child, err := tr.Spawn(ctx, SpawnOptions{Purpose: "clone child", InheritanceMode: types.InheritFullClone})
	require.NoError(t, err)

	views, err := child.Log(ctx, LogOptions{})
	require.NoError(t, err)
	require.Len(t, views, 3)
}

func TestChildrenAndSpawnOrigin(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)
	_, err := tr.User(ctx, "hi", CommitOptions{})
	require.NoError(t, err)

	_, child, err := tr.Spawn(ctx, SpawnOptions{Purpose: "child", InheritanceMode: types.InheritNone})
	require.NoError(t, err)

	children, err := tr.Children(ctx)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, child.ID(), children[0].ChildTractID)

	origin, err := child.SpawnOrigin(ctx)
	require.NoError(t, err)
	require.NotNil(t, origin)
	require.Equal(t, tr.ID(), origin.ParentTractID)
}
