// Package plugins provides the standard executor plugins for workflow runs.
//
// Importing this package registers two executors with the workflow engine:
//
//   - "linear": executes instances one at a time in topological order
//   - "multiproc": executes independent instances in parallel on a local
//     worker pool with a fixed worker count
//
// Applications that call workflow.Run must import this package, usually for
// its side effects alone:
//
//	import _ "github.com/voxflow/voxflow/pkg/engine/plugins"
//
//	report, err := wf.Run(ctx, workflow.RunConfig{Plugin: "multiproc", Procs: 4})
//
// Both executors record a result for every expanded instance: instances whose
// upstream failed are marked skipped, and sibling branches keep running after
// a failure so one bad parameter value does not sink the rest of the sweep.
package plugins

import (
	"github.com/voxflow/voxflow/pkg/engine/workflow"
)

func init() {
	workflow.RegisterExecutor("linear", &Linear{})
	workflow.RegisterExecutor("multiproc", &MultiProc{})
}

// succeeded tracks which instances completed without error.
type succeeded map[*workflow.Instance]bool

// depsSatisfied reports whether every dependency of inst has succeeded.
func (s succeeded) depsSatisfied(inst *workflow.Instance) bool {
	for _, dep := range inst.Deps() {
		if !s[dep] {
			return false
		}
	}
	return true
}
