package interfaces

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/imaging/volume"
)

// Slicer renders a volume as a PNG mosaic of axial slices, for eyeballing
// sweep outputs without a viewer.
//
// Inputs:
//   - in_file: path to the volume to render
//   - cols: mosaic columns; 0 or unset picks a near-square grid
//
// Outputs:
//   - out_file: the rendered mosaic (<stem>_mosaic.png)
//
// Intensities are windowed to the volume's min/max and written as 8-bit
// grayscale.
type Slicer struct{}

// NewSlicer returns a mosaic-rendering interface for use with node.New.
func NewSlicer() *Slicer { return &Slicer{} }

func (s *Slicer) InputNames() []string  { return []string{"in_file", "cols"} }
func (s *Slicer) OutputNames() []string { return []string{"out_file"} }

// Run renders the mosaic into the instance directory.
func (s *Slicer) Run(ctx context.Context, rt node.Runtime, in node.Values) (node.Values, error) {
	path, err := inputPath(in, "in_file")
	if err != nil {
		return nil, err
	}

	colsF, err := inputFloat(in, "cols", 0)
	if err != nil {
		return nil, err
	}
	cols := int(colsF)
	if cols < 0 {
		return nil, fmt.Errorf("slicer: cols must be >= 0, got %d", cols)
	}

	v, err := volume.Load(path)
	if err != nil {
		return nil, fmt.Errorf("slicer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := renderMosaic(v, cols)

	rt.Logger.Debug("mosaic rendered",
		"in_file", path,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	outFile := filepath.Join(rt.Dir, stem(path)+"_mosaic.png")
	f, err := os.Create(outFile)
	if err != nil {
		return nil, fmt.Errorf("slicer: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("slicer: encoding %s: %w", outFile, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("slicer: %w", err)
	}

	return node.Values{"out_file": outFile}, nil
}

func renderMosaic(v *volume.Volume, cols int) *image.Gray {
	if cols == 0 {
		cols = int(math.Ceil(math.Sqrt(float64(v.Nz))))
	}
	if cols > v.Nz {
		cols = v.Nz
	}
	rows := (v.Nz + cols - 1) / cols

	img := image.NewGray(image.Rect(0, 0, cols*v.Nx, rows*v.Ny))

	min, max := v.MinMax()
	scale := float32(0)
	if max > min {
		scale = 255 / (max - min)
	}

	for z := 0; z < v.Nz; z++ {
		ox := (z % cols) * v.Nx
		oy := (z / cols) * v.Ny
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				g := uint8((v.At(x, y, z) - min) * scale)
				// Flip y so anterior ends up at the top of each tile.
				img.SetGray(ox+x, oy+v.Ny-1-y, color.Gray{Y: g})
			}
		}
	}
	return img
}
