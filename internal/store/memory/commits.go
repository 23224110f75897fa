package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// CommitStore is the memory-backed store.CommitStore implementation.
type CommitStore Store

func (c *CommitStore) store() *Store { return (*Store)(c) }

func (c *CommitStore) Get(ctx context.Context, hash string) (*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	commit, ok := s.commits[hash]
	if !ok {
		return nil, types.ErrCommitNotFound
	}
	cp := *commit
	return &cp, nil
}

func (c *CommitStore) Save(ctx context.Context, commit *types.Commit) error {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *commit
	s.commits[commit.CommitHash] = &cp
	if commit.ParentHash != nil {
		s.parents = append(s.parents, types.CommitParent{
			CommitHash: commit.CommitHash,
			ParentHash: *commit.ParentHash,
			Position:   0,
		})
	}
	return nil
}

func (c *CommitStore) GetAncestors(ctx context.Context, hash string, limit int, opFilter []types.Operation) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	byHash := make(map[string]*types.Commit, len(s.commits))
	for h, cm := range s.commits {
		byHash[h] = cm
	}
	s.mu.Unlock()

	allowed := map[types.Operation]bool{}
	for _, op := range opFilter {
		allowed[op] = true
	}

	var out []*types.Commit
	cur := hash
	for cur != "" {
		cm, ok := byHash[cur]
		if !ok {
			break
		}
		if len(allowed) == 0 || allowed[cm.Operation] {
			out = append(out, cm)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		if cm.ParentHash == nil {
			break
		}
		cur = *cm.ParentHash
	}
	return out, nil
}

func (c *CommitStore) GetByType(ctx context.Context, tractID string, contentType types.ContentType) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Commit
	for _, cm := range s.commits {
		if cm.TractID == tractID && cm.ContentType == contentType {
			cp := *cm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *CommitStore) GetChildren(ctx context.Context, hash string) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Commit
	for _, cm := range s.commits {
		if cm.ParentHash != nil && *cm.ParentHash == hash {
			cp := *cm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *CommitStore) GetByPrefix(ctx context.Context, tractID, prefix string) (*types.Commit, error) {
	if len(prefix) < 4 {
		return nil, types.ErrCommitNotFound
	}
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *types.Commit
	for _, cm := range s.commits {
		if cm.TractID != tractID {
			continue
		}
		if strings.HasPrefix(cm.CommitHash, prefix) {
			if match != nil {
				return nil, types.ErrAmbiguousPrefix
			}
			cp := *cm
			match = &cp
		}
	}
	if match == nil {
		return nil, types.ErrCommitNotFound
	}
	return match, nil
}

func (c *CommitStore) GetByConfig(ctx context.Context, tractID string, conditions []store.ConfigCondition) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Commit
	for _, cm := range s.commits {
		if cm.TractID != tractID {
			continue
		}
		if matchesAllConditions(cm, conditions) {
			cp := *cm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *CommitStore) GetEditsFor(ctx context.Context, targetHash string) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Commit
	for _, cm := range s.commits {
		if cm.Operation == types.OpEdit && cm.EditTarget != nil && *cm.EditTarget == targetHash {
			cp := *cm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *CommitStore) Delete(ctx context.Context, hash string) error {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commits[hash]; !ok {
		return types.ErrCommitNotFound
	}
	delete(s.commits, hash)
	for _, cm := range s.commits {
		if cm.ParentHash != nil && *cm.ParentHash == hash {
			cm.ParentHash = nil
		}
		if cm.EditTarget != nil && *cm.EditTarget == hash {
			cm.EditTarget = nil
		}
	}
	filtered := s.parents[:0]
	for _, p := range s.parents {
		if p.CommitHash != hash {
			filtered = append(filtered, p)
		}
	}
	s.parents = filtered
	for tractID, anns := range s.annotations {
		kept := anns[:0]
		for _, a := range anns {
			if a.TargetHash != hash {
				kept = append(kept, a)
			}
		}
		s.annotations[tractID] = kept
	}
	for tractID, refs := range s.refs {
		for name, r := range refs {
			if r.CommitHash != nil && *r.CommitHash == hash {
				delete(s.refs[tractID], name)
			}
		}
	}
	return nil
}

func (c *CommitStore) AllForTract(ctx context.Context, tractID string) ([]*types.Commit, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Commit
	for _, cm := range s.commits {
		if cm.TractID == tractID {
			cp := *cm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *CommitStore) AllParents(ctx context.Context, tractID string) ([]types.CommitParent, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	inTract := map[string]bool{}
	for h, cm := range s.commits {
		if cm.TractID == tractID {
			inTract[h] = true
		}
	}
	var out []types.CommitParent
	for _, p := range s.parents {
		if inTract[p.CommitHash] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *CommitStore) SaveParent(ctx context.Context, parent types.CommitParent) error {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents = append(s.parents, parent)
	return nil
}

func (c *CommitStore) NextSequence(ctx context.Context, tractID string) (int64, error) {
	s := c.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[tractID]++
	return s.sequences[tractID], nil
}
