package compress

import (
	"context"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// classification is the per-commit result of step 2 (spec.md §4.9):
// effective priority plus whatever retention criteria the annotation
// that set it carries (only ever populated for IMPORTANT commits).
type classification struct {
	priority  types.Priority
	retention *types.RetentionCriteria
}

// classify resolves the effective types.Priority of each commit in range
// (spec.md §4.9 step 2): the latest priority annotation, defaulting to
// NORMAL, with the caller's preserve list forcing PINNED regardless of
// what's on record.
func classify(ctx context.Context, annotations store.AnnotationStore, tractID string, commits []*types.Commit, preserve []string) (map[string]classification, error) {
	hashes := make([]string, len(commits))
	for i, c := range commits {
		hashes[i] = c.CommitHash
	}
	latest, err := annotations.BatchGetLatest(ctx, tractID, hashes)
	if err != nil {
		return nil, err
	}

	forced := make(map[string]bool, len(preserve))
	for _, h := range preserve {
		forced[h] = true
	}

	out := make(map[string]classification, len(commits))
	for _, h := range hashes {
		switch {
		case forced[h]:
			out[h] = classification{priority: types.PriorityPinned}
		case latest[h] != nil:
			out[h] = classification{priority: latest[h].Priority, retention: latest[h].Retention}
		default:
			out[h] = classification{priority: types.PriorityNormal}
		}
	}
	return out, nil
}

// group is a maximal run of non-PINNED, non-SKIP commits between PINNED
// boundaries, eligible for joint summarisation (spec.md §4.9 step 3).
type group struct {
	commits   []*types.Commit
	retention []types.RetentionCriteria

	textBlock string
	summary   string
	attempts  int
	diagnosis string
}

// segment is one unit of the partitioned range: either a PINNED commit
// passed through verbatim, or a compressible group.
type segment struct {
	pinned *types.Commit
	group  *group
}

// partition walks commits in chain order, dropping SKIP entirely,
// treating PINNED commits as boundaries, and collecting every maximal
// run of NORMAL/IMPORTANT commits between them into a group. IMPORTANT
// commits stay inside their group but contribute retention criteria
// (spec.md §4.9 step 3).
func partition(commits []*types.Commit, classes map[string]classification) []segment {
	var out []segment
	var current *group

	flush := func() {
		if current != nil && len(current.commits) > 0 {
			out = append(out, segment{group: current})
		}
		current = nil
	}

	for _, c := range commits {
		cl := classes[c.CommitHash]
		switch cl.priority {
		case types.PrioritySkip:
			continue
		case types.PriorityPinned:
			flush()
			out = append(out, segment{pinned: c})
		default: // NORMAL or IMPORTANT
			if current == nil {
				current = &group{}
			}
			current.commits = append(current.commits, c)
			if cl.priority == types.PriorityImportant && cl.retention != nil {
				current.retention = append(current.retention, *cl.retention)
			}
		}
	}
	flush()
	return out
}
