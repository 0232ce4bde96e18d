/*
Package voxflow provides a workflow engine for parameterized volumetric
image processing pipelines.

Pipelines are directed acyclic graphs of named processing nodes. A node may
declare iterables: a list of candidate values for one of its input
parameters. Before execution the engine expands the graph, cloning each node
and its downstream subgraph once per value combination, and writes every
branch to its own output directory so results for different parameter values
never collide.

Engine (pkg/engine):
  - node: processing step contract, identity mapping nodes, iterables
  - workflow: graph container, connections, branch expansion, run reports
  - plugins: executor plugins ("linear", "multiproc")
  - worklock: Redis lock fencing concurrent runs off a shared work directory
  - trace: asynchronous JSON-lines run event log

Imaging (pkg/imaging):
  - volume: float32 volumes with a NIfTI-1 reader/writer
  - interfaces: skull stripping, isotropic Gaussian smoothing, PNG slicing

Scheduling (pkg/scheduling):
  - workerpool: background task processing for the multiproc executor
  - scheduler: cron and interval based re-execution of sweeps

Example usage:

	import (
		"github.com/voxflow/voxflow/pkg/engine/node"
		"github.com/voxflow/voxflow/pkg/engine/workflow"
		"github.com/voxflow/voxflow/pkg/imaging/interfaces"
	)

	strip := node.New("skullstrip", interfaces.NewSkullStrip())
	strip.SetInput("in_file", "anat.nii.gz")

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

	wf := workflow.New("smoothflow", "/tmp/voxflow")
	wf.Add(strip, smooth)
	wf.Connect("skullstrip", "out_file", "smooth", "in_file")

	report, err := wf.Run(ctx, workflow.RunConfig{Plugin: "multiproc", Procs: 4})
*/
package voxflow
