package workerpool_test

import (
	"context"
	"fmt"

	"github.com/voxflow/voxflow/pkg/scheduling/workerpool"
)

// Example demonstrates basic worker pool usage.
func Example() {
	pool := workerpool.New(2, 4)

	done := make(chan struct{})
	task := workerpool.TaskFunc(func(ctx context.Context) error {
		defer close(done)
		fmt.Println("processing volume")
		return nil
	})

	if err := pool.Submit(task); err != nil {
		fmt.Println("submit failed:", err)
	}
	<-done
	<-pool.Shutdown()

	// Output:
	// processing volume
}
