package tract

import (
	"context"
	"fmt"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/dag"
	"github.com/tract-dev/tract/internal/types"
)

// Compile projects the tract's current HEAD into a bounded, ordered
// message list (spec.md §4.8).
func (t *Tract) Compile(ctx context.Context, opts compile.Options) (*types.CompiledContext, error) {
	head, err := dag.ResolveHead(ctx, t.store.Refs(), t.id)
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	return t.compiler.Compile(ctx, t.id, head, opts)
}
