/*
Package node defines the processing step contract of the voxflow engine.

A node is a named wrapper around an Interface, the unit of computation in a
workflow. Interfaces declare named input and output ports; the engine resolves
every input (static assignments, swept parameter values, upstream outputs)
before calling Run, and routes the returned outputs to downstream nodes.

# Quick Start

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.SetInput("in_file", "anat.nii.gz")
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

Iterate declares a parameter sweep: the workflow expands the node and its
downstream subgraph once per value, each branch writing to its own directory.

# Identity Mapping Nodes

Identity builds a pass-through interface for injecting values into a graph
without computing anything:

	infosource := node.New("infosource", node.Identity("subject_id"))
	infosource.Iterate("subject_id", "sub01", "sub02")

# Custom Interfaces

Implement Interface directly, or adapt a function:

	iface := node.NewFunc(
		[]string{"in_file"},
		[]string{"out_file"},
		func(ctx context.Context, rt node.Runtime, in node.Values) (node.Values, error) {
			out := filepath.Join(rt.Dir, "result.nii.gz")
			// ... process in["in_file"] into out ...
			return node.Values{"out_file": out}, nil
		},
	)
*/
package node
