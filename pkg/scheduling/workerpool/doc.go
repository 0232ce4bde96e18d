/*
Package workerpool provides a fixed-size worker pool for background task processing.

A worker pool manages a fixed number of worker goroutines that execute tasks
concurrently. The multiproc executor plugin uses it to bound how many node
instances of an expanded workflow run at once; it is equally usable on its own.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("Task failed: %v", result.Error)
	}

Task Interface:

Tasks implement a simple interface:

	type Task interface {
		Execute(ctx context.Context) error
	}

The TaskFunc type provides a convenient way to create tasks from functions.

Configuration:

	config := workerpool.Config{
		WorkerCount: 8,
		QueueSize:   1000,
		TaskTimeout: 30 * time.Second,
		OnTaskComplete: func(workerID int, result Result) {
			log.Printf("Worker %d completed task in %v", workerID, result.Duration)
		},
	}
	pool := workerpool.NewWithConfig(config)

Panics in tasks are recovered and reported as errors in the task Result.
Graceful shutdown completes queued tasks before releasing workers:

	<-pool.Shutdown()

Prometheus instrumentation is available through NewWithMetrics, which reports
pool size, active workers, queue depth, and per-task durations to a
metrics.Registry.
*/
package workerpool
