package plugins

import (
	"context"

	"github.com/voxflow/voxflow/pkg/engine/workflow"
	"github.com/voxflow/voxflow/pkg/scheduling/workerpool"
)

// MultiProc executes independent instances in parallel on a local worker
// pool. The worker count is Execution.Procs(); dependency order is enforced
// by submitting an instance only after all of its upstream instances have
// succeeded.
type MultiProc struct{}

// completion reports one instance finishing on a worker.
type completion struct {
	inst *workflow.Instance
	err  error
}

// Execute schedules instances as their dependencies complete.
func (m *MultiProc) Execute(ctx context.Context, ex *workflow.Execution) error {
	instances := ex.Instances()
	if len(instances) == 0 {
		return nil
	}

	poolConfig := workerpool.Config{WorkerCount: ex.Procs(), QueueSize: len(instances)}
	var pool workerpool.Pool
	if reg := ex.Metrics(); reg != nil {
		pool = workerpool.NewWithMetrics(poolConfig, "multiproc", reg)
	} else {
		pool = workerpool.NewWithConfig(poolConfig)
	}
	defer func() { <-pool.Shutdown() }()

	done := make(chan completion, len(instances))

	waiting := make(map[*workflow.Instance]int, len(instances))
	terminal := make(map[*workflow.Instance]bool, len(instances))
	running := make(map[*workflow.Instance]bool, len(instances))
	remaining := len(instances)

	// skipCascade marks an instance and everything downstream of it skipped.
	// Running and already-terminal instances are left alone; their dependents
	// are unreachable from here until they complete.
	var skipCascade func(inst *workflow.Instance)
	skipCascade = func(inst *workflow.Instance) {
		if terminal[inst] || running[inst] {
			return
		}
		terminal[inst] = true
		remaining--
		ex.Skip(inst)
		for _, dep := range inst.Dependents() {
			skipCascade(dep)
		}
	}

	submit := func(inst *workflow.Instance) {
		task := workerpool.TaskFunc(func(tctx context.Context) error {
			err := ex.RunInstance(tctx, inst)
			done <- completion{inst: inst, err: err}
			return err
		})
		if err := pool.SubmitWithContext(ctx, task); err != nil {
			skipCascade(inst)
			return
		}
		running[inst] = true
	}

	for _, inst := range instances {
		waiting[inst] = len(inst.Deps())
	}
	for _, inst := range instances {
		if waiting[inst] == 0 {
			submit(inst)
		}
	}

	for remaining > 0 {
		select {
		case <-ctx.Done():
			// Stop scheduling; everything not running will never start.
			for _, inst := range instances {
				skipCascade(inst)
			}
			// Wait out the instances already on workers.
			for len(running) > 0 {
				c := <-done
				delete(running, c.inst)
				terminal[c.inst] = true
				remaining--
			}
			return ctx.Err()

		case c := <-done:
			delete(running, c.inst)
			terminal[c.inst] = true
			remaining--

			if c.err != nil {
				for _, dep := range c.inst.Dependents() {
					skipCascade(dep)
				}
				continue
			}

			for _, dep := range c.inst.Dependents() {
				if terminal[dep] || running[dep] {
					continue
				}
				waiting[dep]--
				if waiting[dep] == 0 {
					submit(dep)
				}
			}
		}
	}

	// Cancellation may have surfaced as failed submissions rather than
	// through the Done branch; report it either way.
	return ctx.Err()
}
