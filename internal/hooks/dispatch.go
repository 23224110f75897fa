package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/tract-dev/tract/internal/types"
)

// OperationEvent names a long-running mutation kind a caller can register
// a handler for (spec.md §4.12: compress, merge, rebase, gc, import).
type OperationEvent string

const (
	EventCompress OperationEvent = "compress"
	EventMerge    OperationEvent = "merge"
	EventRebase   OperationEvent = "rebase"
	EventGC       OperationEvent = "gc"
	EventImport   OperationEvent = "import"
)

// Handler inspects a pending operation and must terminate it (Approve or
// Reject) before returning (spec.md §4.12 handler mode).
type Handler func(ctx context.Context, pending PendingOperation) error

// Registry holds at most one handler per OperationEvent (spec.md §4.12
// simplifies the teacher's eventbus.Handler priority-ordered multi-handler
// chain to "at most one handler per event" — there is exactly one
// decision to make per pending operation, not a pipeline of side effects).
type Registry struct {
	mu       sync.RWMutex
	handlers map[OperationEvent]Handler
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[OperationEvent]Handler{}}
}

// On registers handler for event, replacing any previously registered
// handler for the same event.
func (r *Registry) On(event OperationEvent, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = handler
}

// Dispatch implements spec.md §4.12's three-tier routing:
//  1. review=true: return pending as-is, untouched, for the caller to
//     drive manually.
//  2. a handler is registered for event: invoke it synchronously; the
//     handler must leave pending in a terminal state.
//  3. neither: auto-approve.
func (r *Registry) Dispatch(ctx context.Context, event OperationEvent, pending PendingOperation, review bool) error {
	if review {
		return nil
	}

	r.mu.RLock()
	handler, ok := r.handlers[event]
	r.mu.RUnlock()

	if !ok {
		return pending.Approve()
	}

	if err := handler(ctx, pending); err != nil {
		return fmt.Errorf("handler for %s: %w", event, err)
	}
	if pending.Status() == StatusPending {
		return fmt.Errorf("handler for %s returned without approving or rejecting", event)
	}
	return nil
}

// AutoRetry implements spec.md §4.12's auto_retry: loop validate ->
// approve-on-success, else retry with the diagnosis folded into
// guidance; on exhaustion, reject and return a types.HookRejection
// wrapping a types.RetryExhausted.
func AutoRetry(ctx context.Context, pending PendingOperation, maxRetries int) (*types.HookRejection, error) {
	result := pending.Validate()
	attempt := 0
	for ; !result.OK && attempt < maxRetries; attempt++ {
		next, err := pending.Retry(ctx, result.Diagnosis)
		if err != nil {
			return nil, fmt.Errorf("retry %d: %w", attempt+1, err)
		}
		result = next
	}

	if result.OK {
		if err := pending.Approve(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := pending.Reject(result.Diagnosis); err != nil {
		return nil, err
	}
	metadata := pending.Metadata()
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["retry_exhausted"] = &types.RetryExhausted{
		Attempts:      attempt,
		LastDiagnosis: result.Diagnosis,
	}
	return &types.HookRejection{
		Reason:          result.Diagnosis,
		RejectionSource: "retry_exhausted",
		Metadata:        metadata,
	}, nil
}
