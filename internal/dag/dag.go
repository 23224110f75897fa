// Package dag implements the pure commit-graph queries of spec.md §4.7,
// layered over internal/store's batch-load methods so a single query per
// tract backs any number of in-process traversals (the approach
// internal/storage/sqlite/queries.go takes for its own issue-dependency
// graph: load once, walk in Go rather than push every traversal into SQL).
package dag

import (
	"context"
	"sort"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Graph is an in-memory view of one tract's commit DAG: first-parent
// pointers plus the merge-parent side table, batch-loaded once and reused
// across any number of queries.
type Graph struct {
	commits map[string]*types.Commit
	// parents maps a commit hash to every parent hash (position 0 first),
	// covering both linear first-parent edges and merge-commit second+
	// parents.
	parents map[string][]string
	// children is the reverse index, used by get_branch_commits-style
	// forward walks.
	children map[string][]string
}

// Load batch-loads every commit and parent edge for a tract and builds
// the in-memory Graph (spec.md §4.2: AllForTract/AllParents are the
// "batch-load once, traverse in-process" half of the ancestor contract).
func Load(ctx context.Context, commits store.CommitStore, tractID string) (*Graph, error) {
	all, err := commits.AllForTract(ctx, tractID)
	if err != nil {
		return nil, err
	}
	edges, err := commits.AllParents(ctx, tractID)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		commits:  make(map[string]*types.Commit, len(all)),
		parents:  make(map[string][]string, len(all)),
		children: make(map[string][]string, len(all)),
	}
	for _, c := range all {
		g.commits[c.CommitHash] = c
	}

	byCommit := map[string][]types.CommitParent{}
	for _, e := range edges {
		byCommit[e.CommitHash] = append(byCommit[e.CommitHash], e)
	}
	for hash, es := range byCommit {
		sort.Slice(es, func(i, j int) bool { return es[i].Position < es[j].Position })
		parents := make([]string, len(es))
		for i, e := range es {
			parents[i] = e.ParentHash
			g.children[e.ParentHash] = append(g.children[e.ParentHash], hash)
		}
		g.parents[hash] = parents
	}
	return g, nil
}

// Commit returns the loaded commit, or nil if hash is not in this graph.
func (g *Graph) Commit(hash string) *types.Commit { return g.commits[hash] }

// Parents returns every parent edge of hash, position 0 first. Used to
// detect merge commits (len > 1) during rebase's pre-flight check
// (spec.md §4.10).
func (g *Graph) Parents(hash string) []string { return g.parents[hash] }

// ResolveHead follows HEAD's one level of attached-branch indirection
// (spec.md §4.3) down to a concrete commit hash. Shared by every
// mutating operation that needs to know "the current commit" before
// planning a rewrite (compile, merge, rebase, import, gc).
func ResolveHead(ctx context.Context, refs store.RefStore, tractID string) (string, error) {
	head, err := refs.GetHead(ctx, tractID)
	if err != nil {
		return "", err
	}
	if head.Attached() {
		branch, err := refs.Get(ctx, tractID, *head.SymbolicTarget)
		if err != nil {
			return "", err
		}
		if branch.CommitHash == nil {
			return "", types.ErrDetachedHead
		}
		return *branch.CommitHash, nil
	}
	if head.CommitHash == nil {
		return "", types.ErrDetachedHead
	}
	return *head.CommitHash, nil
}

// GetAllAncestors is the set of all commits reachable from hash via any
// parent edge (BFS over the side table, spec.md §4.7).
func (g *Graph) GetAllAncestors(hash string) map[string]bool {
	seen := map[string]bool{}
	queue := []string{hash}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, p := range g.parents[cur] {
			if !seen[p] {
				queue = append(queue, p)
			}
		}
	}
	delete(seen, hash)
	return seen
}

// IsAncestor reports whether a is in b's ancestor set (spec.md §4.7).
func (g *Graph) IsAncestor(a, b string) bool {
	if a == b {
		return false
	}
	return g.GetAllAncestors(b)[a]
}

// FindMergeBase returns the nearest common ancestor of a and b: the
// commit in ancestors(a) ∩ ancestors(b) that is not itself an ancestor of
// any other member of that intersection. Returns "", false if the
// ancestor sets are disjoint (spec.md §4.7, cross-tract case).
func (g *Graph) FindMergeBase(a, b string) (string, bool) {
	ancestorsA := g.GetAllAncestors(a)
	ancestorsA[a] = true
	ancestorsB := g.GetAllAncestors(b)
	ancestorsB[b] = true

	var common []string
	for h := range ancestorsA {
		if ancestorsB[h] {
			common = append(common, h)
		}
	}
	if len(common) == 0 {
		return "", false
	}

	for _, candidate := range common {
		isNearest := true
		for _, other := range common {
			if other == candidate {
				continue
			}
			if g.IsAncestor(candidate, other) {
				isNearest = false
				break
			}
		}
		if isNearest {
			return candidate, true
		}
	}
	return common[0], true
}

// GetBranchCommits returns the chronologically ordered commits in
// ancestors(tip) \ ancestors(base) (spec.md §4.7), tie-breaking by commit
// hash per spec.md §5's ordering rule.
func (g *Graph) GetBranchCommits(tip, base string) []*types.Commit {
	tipAncestors := g.GetAllAncestors(tip)
	tipAncestors[tip] = true
	baseAncestors := g.GetAllAncestors(base)
	baseAncestors[base] = true

	var out []*types.Commit
	for h := range tipAncestors {
		if baseAncestors[h] {
			continue
		}
		if c, ok := g.commits[h]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CommitHash < out[j].CommitHash
	})
	return out
}

// SecondParentUniqueAncestors returns the ancestors of a merge commit's
// second (and later) parents that are not reachable via the first-parent
// chain, the set compile's ancestor-enumeration step (spec.md §4.8 step
// 1) folds in once per merge commit.
func (g *Graph) SecondParentUniqueAncestors(mergeCommit string) []string {
	parents := g.parents[mergeCommit]
	if len(parents) < 2 {
		return nil
	}
	firstParentAncestors := g.GetAllAncestors(parents[0])
	firstParentAncestors[parents[0]] = true

	seen := map[string]bool{}
	var out []string
	for _, p := range parents[1:] {
		extra := g.GetAllAncestors(p)
		extra[p] = true
		for h := range extra {
			if firstParentAncestors[h] || seen[h] {
				continue
			}
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}
