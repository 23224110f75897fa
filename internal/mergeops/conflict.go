// Package mergeops implements spec.md §4.10: merge, rebase, and
// import-commit, the three DAG rewrites built on dag.Graph's ancestor
// queries. Conflict detection generalizes mergemech's vendored 3-way
// field merge (base/left/right -> merged field, conflict string) from
// per-field issue merging to per-target EDIT merging: instead of three
// copies of one issue record, each side of a branch divergence may carry
// an EDIT commit targeting the same earlier commit, and instead of a
// deterministic field rule, a Resolver decides the outcome.
package mergeops

import (
	"context"
	"fmt"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Conflict is one base commit independently edited by both sides of a
// merge (spec.md §4.10: "EDIT chains that edit the same base commit on
// both sides").
type Conflict struct {
	TargetHash      string
	AncestorContent string
	ContentAText    string // current (HEAD) side's latest edit
	ContentBText    string // incoming (source) side's latest edit
	ConflictType    string

	headEditHash   string
	sourceEditHash string
}

// Key identifies the conflict for PendingMerge's {key -> resolution} map.
func (c Conflict) Key() string { return c.TargetHash }

// detectConflicts finds every target hash with an EDIT commit in both
// headUnique and sourceUnique (spec.md §4.10). Each side's commits are
// walked in chronological order so the latest edit per target wins,
// mirroring an edit chain collapsing to its tip.
func detectConflicts(ctx context.Context, blobs store.BlobStore, commits store.CommitStore, headUnique, sourceUnique []*types.Commit) ([]Conflict, error) {
	headEdits := latestEditPerTarget(headUnique)
	sourceEdits := latestEditPerTarget(sourceUnique)

	var out []Conflict
	for target, headEdit := range headEdits {
		sourceEdit, ok := sourceEdits[target]
		if !ok {
			continue
		}
		aText, err := renderCommitText(ctx, blobs, headEdit)
		if err != nil {
			return nil, err
		}
		bText, err := renderCommitText(ctx, blobs, sourceEdit)
		if err != nil {
			return nil, err
		}
		var ancestorText string
		if targetCommit, err := commits.Get(ctx, target); err == nil {
			ancestorText, _ = renderCommitText(ctx, blobs, targetCommit)
		}
		out = append(out, Conflict{
			TargetHash:      target,
			AncestorContent: ancestorText,
			ContentAText:    aText,
			ContentBText:    bText,
			ConflictType:    "concurrent_edit",
			headEditHash:    headEdit.CommitHash,
			sourceEditHash:  sourceEdit.CommitHash,
		})
	}
	return out, nil
}

func latestEditPerTarget(commitsChrono []*types.Commit) map[string]*types.Commit {
	latest := map[string]*types.Commit{}
	for _, c := range commitsChrono {
		if c.Operation != types.OpEdit || c.EditTarget == nil {
			continue
		}
		latest[*c.EditTarget] = c
	}
	return latest
}

// renderCommitText decodes a single commit's blob into the plain text a
// conflict description or resolver prompt is built from.
func renderCommitText(ctx context.Context, blobs store.BlobStore, c *types.Commit) (string, error) {
	blob, err := blobs.Get(ctx, c.ContentHash)
	if err != nil {
		return "", fmt.Errorf("load content for %s: %w", c.CommitHash, err)
	}
	content, err := types.DecodeContent(blob.PayloadJSON)
	if err != nil {
		return "", fmt.Errorf("decode content for %s: %w", c.CommitHash, err)
	}
	_, text := content.RoleText()
	return text, nil
}

// describeConflict renders the human-readable issue text the default
// and caller-supplied resolvers receive (spec.md §6 resolver contract).
func describeConflict(c Conflict) string {
	return fmt.Sprintf(
		"Commit %s was edited independently on both sides of a merge.\n\nAncestor:\n%s\n\nCurrent (HEAD):\n%s\n\nIncoming:\n%s\n",
		c.TargetHash, c.AncestorContent, c.ContentAText, c.ContentBText,
	)
}
