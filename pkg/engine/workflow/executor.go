package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
)

// Executor runs the instances of an expanded workflow. Implementations own
// ordering and concurrency only; the per-instance work (directory layout,
// input resolution, invoking the interface) is done by Execution.RunInstance.
type Executor interface {
	// Execute processes every instance of the execution, calling
	// Execution.RunInstance or Execution.Skip exactly once per instance.
	// It returns an error only for executor-level failures (for example
	// context cancellation); individual instance failures are recorded on
	// the execution.
	Execute(ctx context.Context, ex *Execution) error
}

var (
	executorsMu sync.RWMutex
	executors   = make(map[string]Executor)
)

// RegisterExecutor makes an executor plugin available to Run under the given
// name. It is typically called from a plugin package's init function; the
// standard plugins register themselves when the engine/plugins package is
// imported.
func RegisterExecutor(name string, e Executor) {
	executorsMu.Lock()
	defer executorsMu.Unlock()
	if e == nil {
		panic("workflow: RegisterExecutor with nil executor")
	}
	if _, dup := executors[name]; dup {
		panic("workflow: RegisterExecutor called twice for " + name)
	}
	executors[name] = e
}

// lookupExecutor resolves a plugin name to a registered executor.
func lookupExecutor(name string) (Executor, error) {
	executorsMu.RLock()
	defer executorsMu.RUnlock()

	if e, ok := executors[name]; ok {
		return e, nil
	}

	known := make([]string, 0, len(executors))
	for k := range executors {
		known = append(known, k)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("%w %q (registered: %s)", vferrors.ErrUnknownPlugin, name, strings.Join(known, ", "))
}
