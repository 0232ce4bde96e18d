package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of work executed by a pool worker. Execute should honor
// context cancellation and return whatever error the work produced.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute calls f.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result describes one completed task.
type Result struct {
	// Task is the task that ran.
	Task Task

	// Error is the error returned by Execute, or the recovered panic.
	Error error

	// Duration is the wall-clock execution time.
	Duration time.Duration

	// WorkerID identifies the worker that ran the task.
	WorkerID int
}

// Pool executes submitted tasks on a fixed set of worker goroutines.
type Pool interface {
	// Submit enqueues a task. It fails if the pool has been shut down.
	Submit(task Task) error

	// SubmitWithContext enqueues a task under ctx. The context is threaded
	// into the task's Execute call, and an already-canceled context rejects
	// the submission outright.
	SubmitWithContext(ctx context.Context, task Task) error

	// Results streams completed task results. The channel closes once
	// Shutdown finishes.
	Results() <-chan Result

	// Shutdown stops accepting tasks, lets queued tasks finish, and closes
	// the returned channel when every worker has exited.
	Shutdown() <-chan struct{}

	// Size reports the number of workers.
	Size() int

	// QueueSize reports how many tasks are waiting for a worker.
	QueueSize() int

	// ActiveWorkers reports how many workers are executing right now.
	ActiveWorkers() int
}

// Config controls pool construction.
type Config struct {
	// WorkerCount is the number of worker goroutines. Must be positive.
	WorkerCount int

	// QueueSize bounds the task queue. Zero means direct handoff: Submit
	// blocks until a worker picks the task up.
	QueueSize int

	// TaskTimeout caps each task's execution time. Zero disables the cap.
	TaskTimeout time.Duration

	// OnTaskComplete, when set, is invoked after every task finishes.
	OnTaskComplete func(workerID int, result Result)
}

// job pairs a task with its submission context.
type job struct {
	ctx  context.Context
	task Task
}

// taskPool is the concrete Pool.
type taskPool struct {
	config Config

	jobs    chan job
	results chan Result

	closing  chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}

	active  atomic.Int32
	dropped atomic.Int64

	wg sync.WaitGroup
}

// New creates a pool with workerCount workers and a task queue of queueSize.
// It panics on invalid arguments, like NewWithConfig.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a pool from config. It panics if WorkerCount is not
// positive or QueueSize is negative; both are programmer errors.
func NewWithConfig(config Config) Pool {
	if config.WorkerCount <= 0 {
		panic("worker count must be positive")
	}
	if config.QueueSize < 0 {
		panic("queue size must be >= 0")
	}

	p := &taskPool{
		config:  config,
		jobs:    make(chan job, config.QueueSize),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
		// Sized so every queued and in-flight task has a result slot even
		// when nobody reads Results.
		results: make(chan Result, config.QueueSize+config.WorkerCount),
	}

	p.wg.Add(config.WorkerCount)
	for id := 0; id < config.WorkerCount; id++ {
		go p.work(id)
	}

	return p
}
