/*
Package workflow provides the graph container and run orchestration of the
voxflow engine.

A workflow holds named nodes and the connections between their output and
input ports. Before execution the graph is expanded: every node that declares
iterables (or descends from one that does) is cloned once per combination
of swept parameter values, and each clone writes to its own branch directory
so parameter values never share outputs.

# Quick Start

	strip := node.New("skullstrip", interfaces.NewSkullStrip())
	strip.SetInput("in_file", "anat.nii.gz")

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

	wf := workflow.New("smoothflow", "/data/work")
	if err := wf.Add(strip, smooth); err != nil {
		log.Fatal(err)
	}
	if err := wf.Connect("skullstrip", "out_file", "smooth", "in_file"); err != nil {
		log.Fatal(err)
	}

	report, err := wf.Run(ctx, workflow.RunConfig{Plugin: "multiproc", Procs: 4})

The run above produces:

	/data/work/smoothflow/skullstrip/
	/data/work/smoothflow/_fwhm_4/smooth/
	/data/work/smoothflow/_fwhm_8/smooth/
	/data/work/smoothflow/_fwhm_16/smooth/

# Executor Plugins

Run dispatches to a named executor plugin. The standard plugins register
themselves when the engine/plugins package is imported:

	import _ "github.com/voxflow/voxflow/pkg/engine/plugins"

Custom executors implement the Executor interface and call RegisterExecutor,
the same way database/sql drivers register themselves.

# Failure Semantics

A failing instance does not abort the run: its downstream instances are
recorded as skipped, sibling branches keep going, and the RunReport
aggregates everything. Context cancellation stops scheduling and returns
ctx.Err() after in-flight instances drain.
*/
package workflow
