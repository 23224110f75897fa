package memory

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// OperationLogStore is the memory-backed store.OperationLogStore
// implementation.
type OperationLogStore Store

func (o *OperationLogStore) store() *Store { return (*Store)(o) }

func (o *OperationLogStore) SaveEvent(ctx context.Context, event *types.OperationEvent, commits []types.OperationEventCommit) error {
	s := o.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.EventID] = &cp
	s.eventCommits[event.EventID] = append([]types.OperationEventCommit{}, commits...)
	return nil
}

func (o *OperationLogStore) GetEvent(ctx context.Context, eventID string) (*types.OperationEvent, []types.OperationEventCommit, error) {
	s := o.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, nil, types.ErrEventNotFound
	}
	cp := *event
	return &cp, append([]types.OperationEventCommit{}, s.eventCommits[eventID]...), nil
}

func (o *OperationLogStore) GetEventsForCommit(ctx context.Context, commitHash string) ([]*types.OperationEvent, error) {
	s := o.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.OperationEvent
	for eventID, commits := range s.eventCommits {
		for _, c := range commits {
			if c.CommitHash == commitHash {
				if event, ok := s.events[eventID]; ok {
					cp := *event
					out = append(out, &cp)
				}
				break
			}
		}
	}
	return out, nil
}
