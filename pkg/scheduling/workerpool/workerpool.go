package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Submit enqueues a task under context.Background().
func (p *taskPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext enqueues a task under ctx. When the pool also has a
// TaskTimeout, the task runs under whichever limit expires first.
func (p *taskPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("submit: task is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-p.closing:
		return fmt.Errorf("submit: pool is shut down")
	default:
	}

	// Reject a dead context before it races the queue send.
	select {
	case <-ctx.Done():
		return fmt.Errorf("submit: %w", ctx.Err())
	default:
	}

	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return nil
	case <-p.closing:
		return fmt.Errorf("submit: pool is shut down")
	case <-ctx.Done():
		return fmt.Errorf("submit: %w", ctx.Err())
	}
}

// Results streams completed task results.
func (p *taskPool) Results() <-chan Result {
	return p.results
}

// Shutdown stops intake, drains the queue, and closes the returned channel
// once every worker has exited. Safe to call more than once.
func (p *taskPool) Shutdown() <-chan struct{} {
	p.stopOnce.Do(func() {
		close(p.closing)
		go func() {
			p.wg.Wait()
			close(p.results)
			close(p.stopped)
		}()
	})
	return p.stopped
}

// Size reports the number of workers.
func (p *taskPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize reports how many tasks are waiting for a worker.
func (p *taskPool) QueueSize() int {
	return len(p.jobs)
}

// ActiveWorkers reports how many workers are executing right now.
func (p *taskPool) ActiveWorkers() int {
	return int(p.active.Load())
}

// work is a worker goroutine. On shutdown it finishes whatever is still
// queued before exiting.
func (p *taskPool) work(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.closing:
			for {
				select {
				case j := <-p.jobs:
					p.runJob(id, j)
				default:
					return
				}
			}
		case j := <-p.jobs:
			p.runJob(id, j)
		}
	}
}

// runJob executes one task, recovering panics into the result error.
func (p *taskPool) runJob(id int, j job) {
	p.active.Add(1)
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v\n%s", r, debug.Stack())
		}
		p.active.Add(-1)

		result := Result{
			Task:     j.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: id,
		}
		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(id, result)
		}
		p.deliver(result)
	}()

	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	err = j.task.Execute(ctx)
}

// deliver hands a result to the results channel without ever blocking a
// worker. The channel is sized for the worst case, so a drop means the
// consumer stopped reading long ago.
func (p *taskPool) deliver(result Result) {
	select {
	case p.results <- result:
	default:
		p.dropped.Add(1)
	}
}
