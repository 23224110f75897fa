package tract

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tract-dev/tract/internal/idgen"
	"github.com/tract-dev/tract/internal/types"

	"go.uber.org/zap"
)

// SpawnOptions configures Spawn's child-tract creation (spec.md §3's spawn
// pointer).
type SpawnOptions struct {
	Purpose         string
	DisplayName     string
	InheritanceMode types.InheritanceMode
}

// Spawn creates a new tract in the same database, recorded as a child of
// t via a SpawnPointer, and returns a Tract handle open on the child
// (spec.md §1, §3: "session multiplexing ... specified only as the
// spawn-pointer table"). The child shares t's store, chat client, and
// config; callers own the returned Tract only insofar as they must not
// Close it separately from the parent (owns is false, mirroring Open).
func (t *Tract) Spawn(ctx context.Context, opts SpawnOptions) (*types.SpawnPointer, *Tract, error) {
	gen := idgen.NewTractIDGenerator()
	name := opts.DisplayName
	if name == "" {
		name = opts.Purpose
	}
	exists := func(id string) bool {
		commits, err := t.store.Commits().AllForTract(ctx, id)
		if err != nil {
			return false
		}
		return len(commits) > 0
	}
	childID := gen.GenerateTractID(name, exists)

	child := Open(childID, t.store, t.cfg, t.chat)

	var parentCommit *string
	head, err := t.Head(ctx)
	if err == nil {
		parentCommit = &head
	}

	switch opts.InheritanceMode {
	case types.InheritHeadSnapshot:
		if head != "" {
			if err := inheritHeadSnapshot(ctx, t, child, head); err != nil {
				return nil, nil, fmt.Errorf("inherit head snapshot: %w", err)
			}
		}
	case types.InheritFullClone:
		if err := inheritFullClone(ctx, t, child); err != nil {
			return nil, nil, fmt.Errorf("inherit full clone: %w", err)
		}
	case types.InheritNone, "":
		// nothing to copy
	}

	sp := &types.SpawnPointer{
		ParentTractID:   t.id,
		ParentCommit:    parentCommit,
		ChildTractID:    childID,
		Purpose:         opts.Purpose,
		InheritanceMode: opts.InheritanceMode,
		DisplayName:     opts.DisplayName,
		CreatedAt:       time.Now().UTC(),
	}
	if err := t.store.Spawns().Save(ctx, sp); err != nil {
		return nil, nil, fmt.Errorf("save spawn pointer: %w", err)
	}

	t.log.Info("tract spawned",
		zap.String("parent_tract_id", t.id),
		zap.String("child_tract_id", childID),
		zap.String("inheritance_mode", string(opts.InheritanceMode)))

	return sp, child, nil
}

// Children lists every tract spawned from t.
func (t *Tract) Children(ctx context.Context) ([]*types.SpawnPointer, error) {
	return t.store.Spawns().ListChildren(ctx, t.id)
}

// SpawnOrigin returns the spawn pointer that created t, or nil if t was
// never spawned from another tract.
func (t *Tract) SpawnOrigin(ctx context.Context) (*types.SpawnPointer, error) {
	sp, err := t.store.Spawns().FindSpawnOrigin(ctx, t.id)
	if err != nil {
		return nil, nil
	}
	return sp, nil
}

// inheritHeadSnapshot copies only parent's HEAD content into child as a
// single commit: the child starts from where the parent currently stands,
// not its full history (invariant 7: cross-tract references never go
// through parent_hash, so the child's DAG must start fresh).
func inheritHeadSnapshot(ctx context.Context, parent, child *Tract, headHash string) error {
	commit, err := parent.store.Commits().Get(ctx, headHash)
	if err != nil {
		return fmt.Errorf("get parent head commit: %w", err)
	}
	blob, err := parent.store.Blobs().Get(ctx, commit.ContentHash)
	if err != nil {
		return fmt.Errorf("get parent head blob: %w", err)
	}
	content, err := types.DecodeContent(blob.PayloadJSON)
	if err != nil {
		return fmt.Errorf("decode parent head content: %w", err)
	}
	_, err = child.CreateCommit(ctx, content, CommitOptions{
		Message:  commit.Message,
		Metadata: map[string]any{"spawn_inherited_from": headHash},
	})
	return err
}

// inheritFullClone replays every commit of parent's tract, across all of
// its branches, into child in sequence order as one linear chain of new
// commits with new hashes (the child's own parent_hash chain, never the
// parent's).
func inheritFullClone(ctx context.Context, parent, child *Tract) error {
	commits, err := parent.store.Commits().AllForTract(ctx, parent.id)
	if err != nil {
		return fmt.Errorf("load parent commits: %w", err)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Sequence < commits[j].Sequence })

	for _, commit := range commits {
		blob, err := parent.store.Blobs().Get(ctx, commit.ContentHash)
		if err != nil {
			return fmt.Errorf("get blob %s: %w", commit.ContentHash, err)
		}
		content, err := types.DecodeContent(blob.PayloadJSON)
		if err != nil {
			return fmt.Errorf("decode content %s: %w", commit.ContentHash, err)
		}
		if _, err := child.CreateCommit(ctx, content, CommitOptions{
			Message:   commit.Message,
			CreatedAt: commit.CreatedAt,
		}); err != nil {
			return fmt.Errorf("replay commit %s: %w", commit.CommitHash, err)
		}
	}
	return nil
}
