/*
Package config loads YAML sweep descriptions for the voxflow CLI.

A sweep file names the images to preprocess and the parameter values to
iterate over:

	name: preproc
	workdir: /data/work
	inputs:
	  sub01: /data/sub01/anat.nii.gz
	  sub02: /data/sub02/anat.nii.gz
	frac: [0.5]
	fwhm: [0, 4, 8, 16]
	mosaic: true
	plugin: multiproc
	procs: 8

Load applies defaults for omitted fields and validates everything the engine
would otherwise reject mid-run.
*/
package config
