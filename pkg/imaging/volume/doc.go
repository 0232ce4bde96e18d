/*
Package volume provides an in-memory 3-D image type and a NIfTI-1 codec.

A Volume holds float32 voxels with millimeter voxel sizes. Load and Save move
volumes to and from single-file NIfTI-1 images (.nii, .nii.gz); reads accept
both byte orders and the common integer and floating-point voxel encodings,
writes always produce little-endian float32.

	v, err := volume.Load("anat.nii.gz")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v.Nx, v.Ny, v.Nz)

	if err := volume.Save(v, "copy.nii.gz"); err != nil {
		log.Fatal(err)
	}
*/
package volume
