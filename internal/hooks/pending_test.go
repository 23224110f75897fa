package hooks

import (
	"context"
	"testing"
)

type fakePending struct {
	*Base
	ok       bool
	attempts int
}

func (f *fakePending) Validate() ValidationResult {
	if f.ok {
		return ValidationResult{OK: true}
	}
	return ValidationResult{OK: false, Diagnosis: "too long"}
}

func (f *fakePending) Retry(ctx context.Context, diagnosis string) (ValidationResult, error) {
	f.attempts++
	if f.attempts >= 2 {
		f.ok = true
	}
	return f.Validate(), nil
}

func (f *fakePending) Metadata() map[string]any { return map[string]any{"attempts": f.attempts} }

func newFakePending() *fakePending {
	f := &fakePending{}
	f.Base = NewBase("test", nil, nil)
	return f
}

func TestAutoRetrySucceedsWithinBudget(t *testing.T) {
	p := newFakePending()
	rej, err := AutoRetry(context.Background(), p, 3)
	if err != nil {
		t.Fatalf("AutoRetry: %v", err)
	}
	if rej != nil {
		t.Fatalf("expected no rejection, got %+v", rej)
	}
	if p.Status() != StatusApproved {
		t.Errorf("Status = %s, want approved", p.Status())
	}
}

func TestAutoRetryExhausts(t *testing.T) {
	p := newFakePending()
	rej, err := AutoRetry(context.Background(), p, 0)
	if err != nil {
		t.Fatalf("AutoRetry: %v", err)
	}
	if rej == nil {
		t.Fatal("expected a rejection")
	}
	if p.Status() != StatusRejected {
		t.Errorf("Status = %s, want rejected", p.Status())
	}
}

func TestRegistryDispatchModes(t *testing.T) {
	reg := NewRegistry()

	// Auto mode: no handler registered.
	auto := newFakePending()
	auto.ok = true
	if err := reg.Dispatch(context.Background(), EventCompress, auto, false); err != nil {
		t.Fatalf("Dispatch (auto): %v", err)
	}
	if auto.Status() != StatusApproved {
		t.Errorf("auto mode Status = %s, want approved", auto.Status())
	}

	// Review mode: left untouched regardless of handler registration.
	review := newFakePending()
	if err := reg.Dispatch(context.Background(), EventCompress, review, true); err != nil {
		t.Fatalf("Dispatch (review): %v", err)
	}
	if review.Status() != StatusPending {
		t.Errorf("review mode Status = %s, want pending", review.Status())
	}

	// Handler mode: registered handler must terminate it.
	reg.On(EventMerge, func(ctx context.Context, pending PendingOperation) error {
		return pending.Reject("handler declined")
	})
	handled := newFakePending()
	if err := reg.Dispatch(context.Background(), EventMerge, handled, false); err != nil {
		t.Fatalf("Dispatch (handler): %v", err)
	}
	if handled.Status() != StatusRejected {
		t.Errorf("handler mode Status = %s, want rejected", handled.Status())
	}
}
