package testutil

import (
	"path/filepath"
	"testing"

	"github.com/voxflow/voxflow/pkg/imaging/volume"
)

// SphereVolume builds a synthetic anatomical volume: a bright sphere of the
// given radius (in voxels) centered in a dark background. Useful as a stand-in
// for a head scan in skull-strip and smoothing tests.
func SphereVolume(nx, ny, nz int, radius float64) *volume.Volume {
	v := volume.New(nx, ny, nz, 1, 1, 1)
	cx, cy, cz := float64(nx-1)/2, float64(ny-1)/2, float64(nz-1)/2
	r2 := radius * radius

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
				if dx*dx+dy*dy+dz*dz <= r2 {
					v.Set(x, y, z, 1000)
				} else {
					v.Set(x, y, z, 10)
				}
			}
		}
	}
	return v
}

// WriteSphereNIfTI writes a SphereVolume to dir and returns the file path.
func WriteSphereNIfTI(t *testing.T, dir string, nx, ny, nz int, radius float64) string {
	t.Helper()
	path := filepath.Join(dir, "anat.nii.gz")
	if err := volume.Save(SphereVolume(nx, ny, nz, radius), path); err != nil {
		t.Fatalf("writing fixture volume: %v", err)
	}
	return path
}
