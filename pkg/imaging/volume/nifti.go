package volume

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// NIfTI-1 datatype codes for the voxel encodings this package reads.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
)

const (
	headerSize = 348
	// Single-file volumes start voxel data at 352: the header plus the
	// four-byte extension flag.
	voxOffsetSingle = 352
)

// nifti1Header mirrors the fixed 348-byte NIfTI-1 header layout. Field names
// follow the standard; only a handful matter for a scalar volume, the rest
// round-trip as zeros.
type nifti1Header struct {
	SizeofHdr     int32
	DataTypeName  [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// Load reads a single-file NIfTI-1 volume (.nii or .nii.gz). Both byte orders
// are accepted; voxel data is converted to float32 with the header's scaling
// slope and intercept applied.
func Load(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	v, err := decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

// Save writes the volume as a single-file NIfTI-1 image with float32 voxels,
// little-endian, gzip-compressed when the path ends in .gz.
func Save(v *Volume, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating volume file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	bw := bufio.NewWriter(w)
	if err := encode(bw, v); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func decode(r io.Reader) (*Volume, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// sizeof_hdr doubles as the byte-order probe: it is always 348, so a
	// mismatched read means the file was written on the other endianness.
	var order binary.ByteOrder = binary.LittleEndian
	if binary.LittleEndian.Uint32(raw[:4]) != headerSize {
		if binary.BigEndian.Uint32(raw[:4]) != headerSize {
			return nil, fmt.Errorf("not a NIfTI-1 file: sizeof_hdr is neither %d nor byte-swapped", headerSize)
		}
		order = binary.BigEndian
	}

	var hdr nifti1Header
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}

	switch string(hdr.Magic[:]) {
	case "n+1\x00":
	case "ni1\x00":
		return nil, fmt.Errorf("two-file (.hdr/.img) NIfTI images are not supported")
	default:
		return nil, fmt.Errorf("not a NIfTI-1 file: bad magic %q", hdr.Magic[:])
	}

	ndim := int(hdr.Dim[0])
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("unsupported dimensionality %d", ndim)
	}
	for i := 4; i <= ndim; i++ {
		if hdr.Dim[i] > 1 {
			return nil, fmt.Errorf("volume has %d points along dim %d; only 3-D images are supported", hdr.Dim[i], i)
		}
	}

	nx, ny, nz := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", nx, ny, nz)
	}

	dx, dy, dz := hdr.Pixdim[1], hdr.Pixdim[2], hdr.Pixdim[3]
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	if dz <= 0 {
		dz = 1
	}

	// Skip any header extensions between the header and the voxel data.
	if skip := int64(hdr.VoxOffset) - headerSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("skipping header extensions: %w", err)
		}
	}

	n := nx * ny * nz
	data, err := readVoxels(r, order, hdr.Datatype, n)
	if err != nil {
		return nil, err
	}

	// slope 0 means "no scaling stored", not "multiply by zero".
	slope, inter := hdr.SclSlope, hdr.SclInter
	if slope != 0 && (slope != 1 || inter != 0) {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	v := New(nx, ny, nz, dx, dy, dz)
	v.Data = data
	return v, nil
}

func readVoxels(r io.Reader, order binary.ByteOrder, datatype int16, n int) ([]float32, error) {
	var size int
	switch datatype {
	case dtUint8:
		size = 1
	case dtInt16:
		size = 2
	case dtInt32, dtFloat32:
		size = 4
	case dtFloat64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported datatype code %d", datatype)
	}

	raw := make([]byte, n*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading voxel data: %w", err)
	}

	data := make([]float32, n)
	switch datatype {
	case dtUint8:
		for i := range data {
			data[i] = float32(raw[i])
		}
	case dtInt16:
		for i := range data {
			data[i] = float32(int16(order.Uint16(raw[i*2:])))
		}
	case dtInt32:
		for i := range data {
			data[i] = float32(int32(order.Uint32(raw[i*4:])))
		}
	case dtFloat32:
		for i := range data {
			data[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
	case dtFloat64:
		for i := range data {
			data[i] = float32(math.Float64frombits(order.Uint64(raw[i*8:])))
		}
	}
	return data, nil
}

func encode(w io.Writer, v *Volume) error {
	hdr := nifti1Header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Dim:       [8]int16{3, int16(v.Nx), int16(v.Ny), int16(v.Nz), 1, 1, 1, 1},
		Datatype:  dtFloat32,
		Bitpix:    32,
		Pixdim:    [8]float32{1, v.Dx, v.Dy, v.Dz, 0, 0, 0, 0},
		VoxOffset: voxOffsetSingle,
		SclSlope:  1,
		XyztUnits: 2, // millimeters
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	copy(hdr.Descrip[:], "voxflow")

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	// Extension flag: no extensions follow.
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, v.Data); err != nil {
		return fmt.Errorf("encoding voxel data: %w", err)
	}
	return nil
}
