package tract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffListsCommitsUniqueToTip(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)

	base, err := tr.User(ctx, "shared base", CommitOptions{})
	require.NoError(t, err)
	require.NoError(t, tr.CreateBranch(ctx, "feature", base.CommitHash))

	mainCommit, err := tr.Assistant(ctx, "on main", CommitOptions{})
	require.NoError(t, err)

	require.NoError(t, tr.DetachCheckout(ctx, base.CommitHash))
	featureCommit, err := tr.Assistant(ctx, "on feature", CommitOptions{})
	require.NoError(t, err)

	diff, err := tr.Diff(ctx, featureCommit.CommitHash, mainCommit.CommitHash)
	require.NoError(t, err)
	require.Equal(t, []string{featureCommit.CommitHash}, diff.Commits)
}
