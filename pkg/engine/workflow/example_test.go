package workflow_test

import (
	"context"
	"fmt"

	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/engine/workflow"
)

// Example demonstrates building and expanding a parameter sweep. The smooth
// node runs once per fwhm value, each branch in its own directory.
func Example() {
	double := node.NewFunc([]string{"value", "fwhm"}, []string{"result"},
		func(_ context.Context, _ node.Runtime, in node.Values) (node.Values, error) {
			return node.Values{"result": in["value"]}, nil
		})

	smooth := node.New("smooth", double)
	smooth.SetInput("value", 1)
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

	wf := workflow.New("sweep", "/tmp/voxflow-example")
	if err := wf.Add(smooth); err != nil {
		fmt.Println(err)
		return
	}
	if err := wf.Validate(); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("workflow:", wf.Name())
	fmt.Println("nodes:", len(wf.Nodes()))

	// Output:
	// workflow: sweep
	// nodes: 1
}
