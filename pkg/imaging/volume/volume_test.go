package volume

import (
	"testing"
)

func TestNewPanicsOnInvalidArgs(t *testing.T) {
	tests := []struct {
		name       string
		nx, ny, nz int
		dx, dy, dz float32
	}{
		{"zero dimension", 0, 4, 4, 1, 1, 1},
		{"negative dimension", 4, -1, 4, 1, 1, 1},
		{"zero voxel size", 4, 4, 4, 1, 0, 1},
		{"negative voxel size", 4, 4, 4, 1, 1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			New(tt.nx, tt.ny, tt.nz, tt.dx, tt.dy, tt.dz)
		})
	}
}

func TestSetAndAt(t *testing.T) {
	v := New(3, 4, 5, 1, 1, 1)
	v.Set(2, 3, 4, 42)
	v.Set(0, 0, 0, -7)

	if got := v.At(2, 3, 4); got != 42 {
		t.Fatalf("At(2,3,4) = %g, want 42", got)
	}
	if got := v.At(0, 0, 0); got != -7 {
		t.Fatalf("At(0,0,0) = %g, want -7", got)
	}
	if got := v.At(1, 1, 1); got != 0 {
		t.Fatalf("At(1,1,1) = %g, want 0", got)
	}
	if got := v.VoxelCount(); got != 60 {
		t.Fatalf("VoxelCount() = %d, want 60", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	v := New(2, 2, 2, 1, 2, 3)
	v.Set(1, 1, 1, 9)

	c := v.Clone()
	c.Set(1, 1, 1, 5)

	if v.At(1, 1, 1) != 9 {
		t.Fatal("mutating the clone changed the original")
	}
	if c.Dx != 1 || c.Dy != 2 || c.Dz != 3 {
		t.Fatalf("clone lost voxel sizes: %gx%gx%g", c.Dx, c.Dy, c.Dz)
	}
}

func TestMinMax(t *testing.T) {
	v := New(2, 2, 1, 1, 1, 1)
	v.Set(0, 0, 0, -3)
	v.Set(1, 1, 0, 12)

	min, max := v.MinMax()
	if min != -3 || max != 12 {
		t.Fatalf("MinMax() = %g, %g; want -3, 12", min, max)
	}
}

func TestPercentile(t *testing.T) {
	v := New(5, 1, 1, 1, 1, 1)
	for i, val := range []float32{10, 20, 30, 40, 50} {
		v.Set(i, 0, 0, val)
	}

	tests := []struct {
		p    float64
		want float32
	}{
		{0, 10},
		{50, 30},
		{100, 50},
		{25, 20},
		{75, 40},
	}
	for _, tt := range tests {
		if got := v.Percentile(tt.p); got != tt.want {
			t.Errorf("Percentile(%g) = %g, want %g", tt.p, got, tt.want)
		}
	}
}
