package interfaces

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/imaging/volume"
)

// fwhmToSigma converts a full-width-at-half-maximum to a Gaussian sigma:
// fwhm = sigma * 2*sqrt(2*ln 2).
const fwhmToSigma = 2.35482

// Smooth applies isotropic Gaussian smoothing to a volume.
//
// Inputs:
//   - in_file: path to the input volume
//   - fwhm:    kernel full width at half maximum, in millimeters
//
// Outputs:
//   - out_file: the smoothed image (<stem>_smooth.nii.gz)
//
// The kernel is separable; sigma is derived per axis from the voxel size, so
// fwhm means millimeters regardless of resolution. A fwhm of zero copies the
// input through unchanged, which keeps an unsmoothed branch expressible in a
// sweep over fwhm values.
type Smooth struct{}

// NewSmooth returns a smoothing interface for use with node.New.
func NewSmooth() *Smooth { return &Smooth{} }

func (s *Smooth) InputNames() []string  { return []string{"in_file", "fwhm"} }
func (s *Smooth) OutputNames() []string { return []string{"out_file"} }

// Run executes the smoothing and writes the result into the instance directory.
func (s *Smooth) Run(ctx context.Context, rt node.Runtime, in node.Values) (node.Values, error) {
	path, err := inputPath(in, "in_file")
	if err != nil {
		return nil, err
	}
	fwhm, err := inputFloat(in, "fwhm", 0)
	if err != nil {
		return nil, err
	}
	if fwhm < 0 {
		return nil, fmt.Errorf("smooth: fwhm must not be negative, got %g", fwhm)
	}

	v, err := volume.Load(path)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}

	if fwhm > 0 {
		smoothAxis(v, 0, fwhm/fwhmToSigma/float64(v.Dx))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		smoothAxis(v, 1, fwhm/fwhmToSigma/float64(v.Dy))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		smoothAxis(v, 2, fwhm/fwhmToSigma/float64(v.Dz))
	}

	rt.Logger.Debug("smoothing complete", "in_file", path, "fwhm", fwhm)

	outFile := filepath.Join(rt.Dir, stem(path)+"_smooth.nii.gz")
	if err := volume.Save(v, outFile); err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	return node.Values{"out_file": outFile}, nil
}

// gaussianKernel returns a normalized 1-D kernel truncated at three sigma.
func gaussianKernel(sigma float64) []float32 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float32, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = float32(w)
		sum += w
	}
	for i := range kernel {
		kernel[i] = float32(float64(kernel[i]) / sum)
	}
	return kernel
}

// smoothAxis convolves the volume in place along one axis. Near the borders
// the kernel is renormalized over the voxels it covers, so edge intensities
// do not fade toward zero.
func smoothAxis(v *volume.Volume, axis int, sigma float64) {
	if sigma <= 0 {
		return
	}
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	dims := [3]int{v.Nx, v.Ny, v.Nz}
	n := dims[axis]
	line := make([]float32, n)

	// stride between consecutive voxels along the axis
	strides := [3]int{1, v.Nx, v.Nx * v.Ny}
	stride := strides[axis]

	outer := [3]int{v.Nx, v.Ny, v.Nz}
	outer[axis] = 1

	for z := 0; z < outer[2]; z++ {
		for y := 0; y < outer[1]; y++ {
			for x := 0; x < outer[0]; x++ {
				base := x + v.Nx*(y+v.Ny*z)

				for i := 0; i < n; i++ {
					line[i] = v.Data[base+i*stride]
				}
				for i := 0; i < n; i++ {
					var acc, weight float64
					for k := -radius; k <= radius; k++ {
						j := i + k
						if j < 0 || j >= n {
							continue
						}
						w := float64(kernel[k+radius])
						acc += w * float64(line[j])
						weight += w
					}
					v.Data[base+i*stride] = float32(acc / weight)
				}
			}
		}
	}
}
