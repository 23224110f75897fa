package compress

import (
	"fmt"

	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/types"
)

// firstParentChain walks g from headHash following only the first-parent
// edge, returning commits oldest-first. This is the chronological spine
// compression resolves a range against (spec.md §4.9 step 1).
func firstParentChain(g *dag.Graph, headHash string) ([]*types.Commit, error) {
	var reversed []*types.Commit
	cur := headHash
	for cur != "" {
		c := g.Commit(cur)
		if c == nil {
			return nil, types.ErrCommitNotFound
		}
		reversed = append(reversed, c)
		if c.ParentHash == nil {
			break
		}
		cur = *c.ParentHash
	}
	chain := make([]*types.Commit, len(reversed))
	for i, c := range reversed {
		chain[len(reversed)-1-i] = c
	}
	return chain, nil
}

// resolveRange implements spec.md §4.9 step 1: given an explicit commit
// list, a (from, to) pair, or neither (the full chain), resolve it against
// the first-parent chain from HEAD and return the chain-ordered slice. An
// explicit list selects the contiguous chain span from its earliest to
// its latest listed commit; chain commits between them are included even
// when they are not listed.
// The resolved range must end at HEAD — compress only ever replaces a
// tip-anchored suffix of the chain, since finalisation resets the branch
// ref to the range's pre-range parent and replays forward from there.
func resolveRange(chain []*types.Commit, opts Options) ([]*types.Commit, error) {
	index := make(map[string]int, len(chain))
	for i, c := range chain {
		index[c.CommitHash] = i
	}

	var lo, hi int
	switch {
	case len(opts.Commits) > 0:
		lo, hi = -1, -1
		for _, h := range opts.Commits {
			i, ok := index[h]
			if !ok {
				return nil, fmt.Errorf("%w: commit %s is not on the first-parent chain from HEAD", types.ErrCompressionError, h)
			}
			if lo == -1 || i < lo {
				lo = i
			}
			if hi == -1 || i > hi {
				hi = i
			}
		}
	case opts.FromCommit != "" || opts.ToCommit != "":
		var ok bool
		if opts.FromCommit == "" {
			lo = 0
		} else if lo, ok = index[opts.FromCommit]; !ok {
			return nil, fmt.Errorf("%w: from_commit %s not found", types.ErrCompressionError, opts.FromCommit)
		}
		if opts.ToCommit == "" {
			hi = len(chain) - 1
		} else if hi, ok = index[opts.ToCommit]; !ok {
			return nil, fmt.Errorf("%w: to_commit %s not found", types.ErrCompressionError, opts.ToCommit)
		}
		if lo > hi {
			return nil, fmt.Errorf("%w: from_commit is after to_commit", types.ErrCompressionError)
		}
	default:
		lo, hi = 0, len(chain)-1
	}

	if hi != len(chain)-1 {
		return nil, fmt.Errorf("%w: range must extend to HEAD", types.ErrCompressionError)
	}
	return chain[lo : hi+1], nil
}
