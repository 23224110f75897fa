// Package oplog is a read-side convenience layer over
// store.OperationLogStore (spec.md §4.13): given a commit range, resolve
// every operation event touching those commits into one chronologically
// ordered, de-duplicated list with its source/result commits attached.
// Grounded on internal/dag's "batch-load once, walk in-process" shape:
// store.OperationLogStore only exposes per-commit and per-event lookups,
// so a range query here fans out GetEventsForCommit across the range and
// folds the results rather than adding a new store-level query.
package oplog

import (
	"context"
	"sort"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Event bundles one operation event with its source and result commit
// rows, split out by role for direct consumption (spec.md §4.13, §3).
type Event struct {
	types.OperationEvent
	Sources []types.OperationEventCommit
	Results []types.OperationEventCommit
}

// Reader queries the operation-event log for audit tooling
// (`tract log --events`, SPEC_FULL.md's operation-event audit CLI).
type Reader struct {
	oplog store.OperationLogStore
}

// New builds an oplog Reader.
func New(log store.OperationLogStore) *Reader {
	return &Reader{oplog: log}
}

// ForCommit returns every event touching hash, newest first.
func (r *Reader) ForCommit(ctx context.Context, hash string) ([]Event, error) {
	events, err := r.oplog.GetEventsForCommit(ctx, hash)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, events)
}

// ForRange returns the de-duplicated, newest-first union of every event
// touching any commit in hashes (spec.md §4.13's audit use, walked over
// the commit range a caller has already resolved via internal/dag).
func (r *Reader) ForRange(ctx context.Context, hashes []string) ([]Event, error) {
	seen := map[string]*types.OperationEvent{}
	var order []string
	for _, h := range hashes {
		events, err := r.oplog.GetEventsForCommit(ctx, h)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if _, ok := seen[e.EventID]; !ok {
				seen[e.EventID] = e
				order = append(order, e.EventID)
			}
		}
	}
	events := make([]*types.OperationEvent, 0, len(order))
	for _, id := range order {
		events = append(events, seen[id])
	}
	return r.hydrate(ctx, events)
}

// hydrate resolves each event's commit rows and sorts newest first.
func (r *Reader) hydrate(ctx context.Context, events []*types.OperationEvent) ([]Event, error) {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		_, commits, err := r.oplog.GetEvent(ctx, e.EventID)
		if err != nil {
			return nil, err
		}
		ev := Event{OperationEvent: *e}
		for _, c := range commits {
			switch c.Role {
			case types.RoleSource:
				ev.Sources = append(ev.Sources, c)
			case types.RoleResult:
				ev.Results = append(ev.Results, c)
			}
		}
		sort.Slice(ev.Sources, func(i, j int) bool { return ev.Sources[i].Position < ev.Sources[j].Position })
		sort.Slice(ev.Results, func(i, j int) bool { return ev.Results[i].Position < ev.Results[j].Position })
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
