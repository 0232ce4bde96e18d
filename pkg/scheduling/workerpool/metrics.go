package workerpool

import (
	"context"
	"time"

	"github.com/voxflow/voxflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a worker pool that reports to the given metrics registry.
// A nil registry falls back to metrics.DefaultRegistry.
func NewWithMetrics(config Config, name string, registry *metrics.Registry) Pool {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}

	mp := &MetricsPool{
		pool:     NewWithConfig(config),
		name:     name,
		registry: registry,
	}
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	return mp
}

// updateGauges refreshes the current state gauges.
func (mp *MetricsPool) updateGauges() {
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	wrapped := &metricsTask{original: task, pool: mp}
	err := mp.pool.SubmitWithContext(ctx, wrapped)
	mp.updateGauges()
	return err
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original Task
	pool     *MetricsPool
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) error {
	start := time.Now()
	err := mt.original.Execute(ctx)

	reg, name := mt.pool.registry, mt.pool.name
	reg.TaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	reg.TasksExecuted.WithLabelValues(name).Inc()
	if err != nil {
		reg.TasksFailed.WithLabelValues(name).Inc()
	}
	mt.pool.updateGauges()

	return err
}

// Results returns a channel of task results.
func (mp *MetricsPool) Results() <-chan Result {
	return mp.pool.Results()
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	return mp.pool.QueueSize()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	return mp.pool.ActiveWorkers()
}
