package plugins

import (
	"context"

	"github.com/voxflow/voxflow/pkg/engine/workflow"
)

// Linear executes instances sequentially in topological order.
type Linear struct{}

// Execute runs every instance one at a time. Instances downstream of a
// failure are skipped; on context cancellation the remaining instances are
// skipped and the context error is returned.
func (l *Linear) Execute(ctx context.Context, ex *workflow.Execution) error {
	ok := make(succeeded)

	instances := ex.Instances()
	for i, inst := range instances {
		if ctx.Err() != nil {
			for _, rest := range instances[i:] {
				ex.Skip(rest)
			}
			return ctx.Err()
		}

		if !ok.depsSatisfied(inst) {
			ex.Skip(inst)
			continue
		}

		if err := ex.RunInstance(ctx, inst); err == nil {
			ok[inst] = true
		}
	}

	return nil
}
