/*
Package interfaces provides the imaging operations that run inside workflow
nodes: skull stripping, Gaussian smoothing, and PNG mosaic rendering.

Each type satisfies node.Interface, declaring named inputs and outputs and
writing its result files into the directory the engine assigns per branch:

	strip := node.New("skullstrip", interfaces.NewSkullStrip())
	strip.SetInput("in_file", "/data/sub01/anat.nii.gz")

	smooth := node.New("smooth", interfaces.NewSmooth())
	smooth.Iterate("fwhm", 4.0, 8.0, 16.0)

All operations are pure Go over the volume package; no external imaging
binaries are shelled out to.
*/
package interfaces
