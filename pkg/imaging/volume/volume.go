package volume

import (
	"fmt"
	"math"
	"sort"
)

// Volume is a 3-D scalar image held in memory as float32, voxel sizes in
// millimeters. Data is stored x-fastest: index = x + nx*(y + ny*z).
type Volume struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float32
	Data       []float32
}

// New creates a zero-filled volume with the given dimensions and voxel sizes.
// Panics if any dimension or voxel size is not positive; those are programmer
// errors, not runtime conditions.
func New(nx, ny, nz int, dx, dy, dz float32) *Volume {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		panic(fmt.Sprintf("volume: dimensions must be positive, got %dx%dx%d", nx, ny, nz))
	}
	if dx <= 0 || dy <= 0 || dz <= 0 {
		panic(fmt.Sprintf("volume: voxel sizes must be positive, got %gx%gx%g", dx, dy, dz))
	}
	return &Volume{
		Nx: nx, Ny: ny, Nz: nz,
		Dx: dx, Dy: dy, Dz: dz,
		Data: make([]float32, nx*ny*nz),
	}
}

func (v *Volume) index(x, y, z int) int {
	return x + v.Nx*(y+v.Ny*z)
}

// At returns the voxel value at (x, y, z). Coordinates must be in range.
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[v.index(x, y, z)]
}

// Set stores a voxel value at (x, y, z). Coordinates must be in range.
func (v *Volume) Set(x, y, z int, val float32) {
	v.Data[v.index(x, y, z)] = val
}

// VoxelCount returns the total number of voxels.
func (v *Volume) VoxelCount() int {
	return v.Nx * v.Ny * v.Nz
}

// Clone returns a deep copy sharing no data with the receiver.
func (v *Volume) Clone() *Volume {
	out := New(v.Nx, v.Ny, v.Nz, v.Dx, v.Dy, v.Dz)
	copy(out.Data, v.Data)
	return out
}

// MinMax returns the smallest and largest voxel values.
func (v *Volume) MinMax() (min, max float32) {
	min = float32(math.Inf(1))
	max = float32(math.Inf(-1))
	for _, val := range v.Data {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	return min, max
}

// Percentile returns the p-th percentile of the voxel intensities, with
// linear interpolation between ranks. p must be in [0, 100].
func (v *Volume) Percentile(p float64) float32 {
	if p < 0 || p > 100 {
		panic(fmt.Sprintf("volume: percentile must be in [0, 100], got %g", p))
	}
	sorted := make([]float32, len(v.Data))
	copy(sorted, v.Data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := float32(rank - float64(lo))
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
