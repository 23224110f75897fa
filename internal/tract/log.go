package tract

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tract-dev/tract/internal/oplog"
	"github.com/tract-dev/tract/internal/query"
)

// LogOptions filters Log's commit listing.
type LogOptions struct {
	// Query is a tract log --query predicate expression (internal/query's
	// grammar). Empty means no filtering.
	Query string
	// Limit caps the number of returned commits, newest first. Zero means
	// unbounded.
	Limit int
}

// Log lists the tract's commits, newest first, evaluating Query against
// each commit's resolved priority and tag state (spec.md §4.4, §4.5's
// "support compilation over long chains without N+1"): priority
// annotations are batch-resolved once; tags are resolved per commit.
func (t *Tract) Log(ctx context.Context, opts LogOptions) ([]query.CommitView, error) {
	commits, err := t.store.Commits().AllForTract(ctx, t.id)
	if err != nil {
		return nil, fmt.Errorf("load commits: %w", err)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Sequence > commits[j].Sequence })

	hashes := make([]string, len(commits))
	for i, c := range commits {
		hashes[i] = c.CommitHash
	}
	annotations, err := t.store.Annotations().BatchGetLatest(ctx, t.id, hashes)
	if err != nil {
		return nil, fmt.Errorf("batch load annotations: %w", err)
	}

	var predicate func(*query.CommitView) bool
	if opts.Query != "" {
		node, err := query.Parse(opts.Query)
		if err != nil {
			return nil, fmt.Errorf("parse query: %w", err)
		}
		predicate, err = query.NewEvaluator(time.Now().UTC()).Evaluate(node)
		if err != nil {
			return nil, fmt.Errorf("compile query: %w", err)
		}
	}

	views := make([]query.CommitView, 0, len(commits))
	for _, c := range commits {
		view := query.CommitView{Commit: c}
		if ann, ok := annotations[c.CommitHash]; ok {
			view.Priority = ann.Priority
		}
		tags, err := t.store.Tags().GetTags(ctx, t.id, c.CommitHash, c.Tags)
		if err != nil {
			return nil, fmt.Errorf("get tags for %s: %w", c.CommitHash, err)
		}
		view.Tags = tags

		if predicate != nil && !predicate(&view) {
			continue
		}
		views = append(views, view)
		if opts.Limit > 0 && len(views) >= opts.Limit {
			break
		}
	}
	return views, nil
}

// ShowEvents returns the operation-event audit trail (compress/merge/
// rebase/gc/import provenance, spec.md §4.13) touching hash.
func (t *Tract) ShowEvents(ctx context.Context, hash string) ([]oplog.Event, error) {
	return t.oplog.ForCommit(ctx, hash)
}

// ShowEventsForRange returns the de-duplicated audit trail touching any
// commit in hashes.
func (t *Tract) ShowEventsForRange(ctx context.Context, hashes []string) ([]oplog.Event, error) {
	return t.oplog.ForRange(ctx, hashes)
}
