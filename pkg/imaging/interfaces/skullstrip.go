package interfaces

import (
	"context"
	"fmt"
	"path/filepath"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/imaging/volume"
)

// DefaultFrac is the fractional intensity threshold used when the frac input
// is not set. Lower values keep more tissue.
const DefaultFrac = 0.5

// SkullStrip removes non-brain voxels from an anatomical image.
//
// Inputs:
//   - in_file: path to the anatomical volume
//   - frac:    fractional intensity threshold in (0, 1), optional
//
// Outputs:
//   - out_file:  the masked brain image (<stem>_brain.nii.gz)
//   - mask_file: the binary brain mask (<stem>_brain_mask.nii.gz)
//
// The brain is estimated by thresholding at frac of the robust intensity
// range (2nd to 98th percentile) and keeping the largest 6-connected
// component above threshold.
type SkullStrip struct{}

// NewSkullStrip returns a skull-strip interface for use with node.New.
func NewSkullStrip() *SkullStrip { return &SkullStrip{} }

func (s *SkullStrip) InputNames() []string  { return []string{"in_file", "frac"} }
func (s *SkullStrip) OutputNames() []string { return []string{"out_file", "mask_file"} }

// Run executes the strip and writes both outputs into the instance directory.
func (s *SkullStrip) Run(ctx context.Context, rt node.Runtime, in node.Values) (node.Values, error) {
	path, err := inputPath(in, "in_file")
	if err != nil {
		return nil, err
	}
	frac, err := inputFloat(in, "frac", DefaultFrac)
	if err != nil {
		return nil, err
	}
	if frac <= 0 || frac >= 1 {
		return nil, vferrors.NewValidationError("skullstrip", "frac", frac, "must lie strictly between 0 and 1").
			WithHint("lower values keep more tissue")
	}

	v, err := volume.Load(path)
	if err != nil {
		return nil, fmt.Errorf("skullstrip: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lo := float64(v.Percentile(2))
	hi := float64(v.Percentile(98))
	threshold := float32(lo + frac*(hi-lo))

	mask := largestComponent(v, threshold)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	brain := v.Clone()
	var kept int
	for i := range brain.Data {
		if mask.Data[i] == 0 {
			brain.Data[i] = 0
		} else {
			kept++
		}
	}

	rt.Logger.Debug("skull strip complete",
		"in_file", path,
		"frac", frac,
		"threshold", threshold,
		"brain_voxels", kept)

	outFile := filepath.Join(rt.Dir, stem(path)+"_brain.nii.gz")
	maskFile := filepath.Join(rt.Dir, stem(path)+"_brain_mask.nii.gz")
	if err := volume.Save(brain, outFile); err != nil {
		return nil, fmt.Errorf("skullstrip: %w", err)
	}
	if err := volume.Save(mask, maskFile); err != nil {
		return nil, fmt.Errorf("skullstrip: %w", err)
	}

	return node.Values{"out_file": outFile, "mask_file": maskFile}, nil
}

// largestComponent returns a binary mask of the largest 6-connected region of
// voxels at or above threshold.
func largestComponent(v *volume.Volume, threshold float32) *volume.Volume {
	mask := volume.New(v.Nx, v.Ny, v.Nz, v.Dx, v.Dy, v.Dz)
	visited := make([]bool, len(v.Data))

	idx := func(x, y, z int) int { return x + v.Nx*(y+v.Ny*z) }

	var bestLabel []int32
	queue := make([]int32, 0, 1024)

	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				start := idx(x, y, z)
				if visited[start] || v.Data[start] < threshold {
					continue
				}

				// Flood-fill one component.
				component := []int32{int32(start)}
				visited[start] = true
				queue = append(queue[:0], int32(start))
				for len(queue) > 0 {
					cur := int(queue[len(queue)-1])
					queue = queue[:len(queue)-1]

					cz := cur / (v.Nx * v.Ny)
					cy := (cur / v.Nx) % v.Ny
					cx := cur % v.Nx

					for _, d := range [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
						nx, ny, nz := cx+d[0], cy+d[1], cz+d[2]
						if nx < 0 || nx >= v.Nx || ny < 0 || ny >= v.Ny || nz < 0 || nz >= v.Nz {
							continue
						}
						n := idx(nx, ny, nz)
						if visited[n] || v.Data[n] < threshold {
							continue
						}
						visited[n] = true
						component = append(component, int32(n))
						queue = append(queue, int32(n))
					}
				}

				if len(component) > len(bestLabel) {
					bestLabel = component
				}
			}
		}
	}

	for _, i := range bestLabel {
		mask.Data[i] = 1
	}
	return mask
}
