package tract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tract-dev/tract/internal/gc"
	"github.com/tract-dev/tract/internal/hooks"
)

func TestGCAutoApprovesWithoutHandler(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	_, err := tr.User(ctx, "keep me", CommitOptions{})
	require.NoError(t, err)

	result, pending, err := tr.GC(ctx, gc.Options{})
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, hooks.StatusCommitted, pending.Status())
	require.NotNil(t, result)
}

func TestGCReviewModeReturnsPendingUntouched(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	_, err := tr.User(ctx, "keep me", CommitOptions{})
	require.NoError(t, err)

	result, pending, err := tr.GC(ctx, gc.Options{Review: true})
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, pending)
	require.Equal(t, hooks.StatusPending, pending.Status())
}

func TestRegisterHookRoutesThroughHandler(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	_, err := tr.User(ctx, "keep me", CommitOptions{})
	require.NoError(t, err)

	called := false
	tr.RegisterHook(hooks.EventGC, func(ctx context.Context, pending hooks.PendingOperation) error {
		called = true
		return pending.Approve()
	})

	_, pending, err := tr.GC(ctx, gc.Options{})
	require.NoError(t, err)
	require.True(t, called)
	require.NotNil(t, pending)
	require.Equal(t, hooks.StatusCommitted, pending.Status())
}
