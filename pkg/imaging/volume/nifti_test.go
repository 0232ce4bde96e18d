package volume

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func gradientVolume() *Volume {
	v := New(4, 3, 2, 2, 2, 3)
	for z := 0; z < v.Nz; z++ {
		for y := 0; y < v.Ny; y++ {
			for x := 0; x < v.Nx; x++ {
				v.Set(x, y, z, float32(x+10*y+100*z))
			}
		}
	}
	return v
}

func assertVolumesEqual(t *testing.T, got, want *Volume) {
	t.Helper()
	if got.Nx != want.Nx || got.Ny != want.Ny || got.Nz != want.Nz {
		t.Fatalf("dimensions %dx%dx%d, want %dx%dx%d",
			got.Nx, got.Ny, got.Nz, want.Nx, want.Ny, want.Nz)
	}
	if got.Dx != want.Dx || got.Dy != want.Dy || got.Dz != want.Dz {
		t.Fatalf("voxel sizes %gx%gx%g, want %gx%gx%g",
			got.Dx, got.Dy, got.Dz, want.Dx, want.Dy, want.Dz)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("voxel %d = %g, want %g", i, got.Data[i], want.Data[i])
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"grad.nii", "grad.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			want := gradientVolume()
			path := filepath.Join(t.TempDir(), name)

			if err := Save(want, path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			assertVolumesEqual(t, got, want)
		})
	}
}

// writeRaw builds a NIfTI-1 file by hand so Load can be exercised against
// encodings Save never produces.
func writeRaw(t *testing.T, order binary.ByteOrder, hdr nifti1Header, voxels any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, order, &hdr); err != nil {
		t.Fatalf("encoding test header: %v", err)
	}
	buf.Write([]byte{0, 0, 0, 0})
	if voxels != nil {
		if err := binary.Write(&buf, order, voxels); err != nil {
			t.Fatalf("encoding test voxels: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "raw.nii")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

func rawHeader(datatype, bitpix int16) nifti1Header {
	return nifti1Header{
		SizeofHdr: headerSize,
		Dim:       [8]int16{3, 2, 2, 1, 1, 1, 1, 1},
		Datatype:  datatype,
		Bitpix:    bitpix,
		Pixdim:    [8]float32{1, 1, 1, 1, 0, 0, 0, 0},
		VoxOffset: voxOffsetSingle,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
}

func TestLoadBigEndianInt16WithScaling(t *testing.T) {
	hdr := rawHeader(dtInt16, 16)
	hdr.SclSlope = 2
	hdr.SclInter = -5

	path := writeRaw(t, binary.BigEndian, hdr, []int16{1, 2, 3, 4})

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []float32{-3, -1, 1, 3}
	for i, w := range want {
		if v.Data[i] != w {
			t.Fatalf("voxel %d = %g, want %g", i, v.Data[i], w)
		}
	}
}

func TestLoadUint8(t *testing.T) {
	path := writeRaw(t, binary.LittleEndian, rawHeader(dtUint8, 8), []uint8{0, 128, 255, 7})

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Data[1] != 128 || v.Data[2] != 255 {
		t.Fatalf("voxels = %v", v.Data)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	hdr := rawHeader(dtFloat32, 32)
	hdr.Magic = [4]byte{'x', 'x', 'x', 0}
	path := writeRaw(t, binary.LittleEndian, hdr, []float32{0, 0, 0, 0})

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a bad magic string")
	}
}

func TestLoadRejectsTwoFileImages(t *testing.T) {
	hdr := rawHeader(dtFloat32, 32)
	hdr.Magic = [4]byte{'n', 'i', '1', 0}
	path := writeRaw(t, binary.LittleEndian, hdr, []float32{0, 0, 0, 0})

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a .hdr/.img pair")
	}
}

func TestLoadRejectsUnsupportedDatatype(t *testing.T) {
	// 32 is NIFTI complex64, which has no float32 representation here.
	path := writeRaw(t, binary.LittleEndian, rawHeader(32, 64), []float32{0, 0, 0, 0, 0, 0, 0, 0})

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unsupported datatype")
	}
}

func TestLoadRejects4D(t *testing.T) {
	hdr := rawHeader(dtFloat32, 32)
	hdr.Dim = [8]int16{4, 2, 2, 1, 3, 1, 1, 1}
	path := writeRaw(t, binary.LittleEndian, hdr, make([]float32, 12))

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a 4-D image")
	}
}

func TestLoadSkipsHeaderExtensions(t *testing.T) {
	hdr := rawHeader(dtFloat32, 32)
	hdr.VoxOffset = voxOffsetSingle + 16

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatalf("encoding test header: %v", err)
	}
	buf.Write(make([]byte, 4+16)) // extension flag plus padding
	if err := binary.Write(&buf, binary.LittleEndian, []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("encoding test voxels: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ext.nii")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Data[3] != 4 {
		t.Fatalf("voxel 3 = %g, want 4", v.Data[3])
	}
}
