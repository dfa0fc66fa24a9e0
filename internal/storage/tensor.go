// Package storage implements the self-describing tensor container used to
// persist chunk tensors, centroids, residual codebooks, and the IVF arrays
// (spec §4.3-§4.6, §6.3). Every file written by this package carries its own
// dtype and shape so a reader never has to be told out of band how to
// interpret the bytes that follow.
package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// dtype codes. Only the element kinds this pipeline actually produces are
// represented; there is no float64 or int64 path because nothing upstream
// emits one.
const (
	dtypeFloat32 = 1
	dtypeUint32  = 2
	dtypeUint8   = 3
)

const magic = "CIDX"

// WriteFloat32 writes a header (magic, dtype, ndim, dims...) followed by the
// raw little-endian float32 payload. dims is the shape in row-major reading
// order (callers pass [rows, cols] for a column-major mat.Matrix's Data());
// the container does not itself interpret layout, it only records shape.
func WriteFloat32(path string, dims []int, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeHeader(f, dtypeFloat32, dims); err != nil {
		return err
	}

	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// WriteUint32 writes a uint32 tensor (used for centroid codes and the IVF
// permutation array).
func WriteUint32(path string, dims []int, data []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeHeader(f, dtypeUint32, dims); err != nil {
		return err
	}

	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// WriteBytes writes a raw byte tensor (used for bit-packed residuals, dtype
// uint8 with an explicit row-byte-width as the leading dimension).
func WriteBytes(path string, dims []int, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeHeader(f, dtypeUint8, dims); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func writeHeader(w io.Writer, dtype uint8, dims []int) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dtype); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(dims))); err != nil {
		return err
	}
	for _, d := range dims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return err
		}
	}
	return nil
}

// Header describes a tensor's shape as recorded on disk.
type Header struct {
	Dtype uint8
	Dims  []int
}

func readHeader(f *os.File) (Header, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, fmt.Errorf("storage: read magic: %w", err)
	}
	if string(buf) != magic {
		return Header{}, fmt.Errorf("storage: bad magic %q", buf)
	}

	var dtype uint8
	if err := binary.Read(f, binary.LittleEndian, &dtype); err != nil {
		return Header{}, fmt.Errorf("storage: read dtype: %w", err)
	}

	var ndim uint32
	if err := binary.Read(f, binary.LittleEndian, &ndim); err != nil {
		return Header{}, fmt.Errorf("storage: read ndim: %w", err)
	}

	dims := make([]int, ndim)
	for i := range dims {
		var d uint32
		if err := binary.Read(f, binary.LittleEndian, &d); err != nil {
			return Header{}, fmt.Errorf("storage: read dim %d: %w", i, err)
		}
		dims[i] = int(d)
	}

	return Header{Dtype: dtype, Dims: dims}, nil
}

// ReadFloat32 reads a float32 tensor file written by WriteFloat32.
func ReadFloat32(path string) (Header, []float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Dtype != dtypeFloat32 {
		return Header{}, nil, fmt.Errorf("storage: %s has dtype %d, want float32", path, h.Dtype)
	}

	n := numElements(h.Dims)
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, nil, fmt.Errorf("storage: read %s payload: %w", path, err)
	}

	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return h, data, nil
}

// ReadUint32 reads a uint32 tensor file written by WriteUint32.
func ReadUint32(path string) (Header, []uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Dtype != dtypeUint32 {
		return Header{}, nil, fmt.Errorf("storage: %s has dtype %d, want uint32", path, h.Dtype)
	}

	n := numElements(h.Dims)
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, nil, fmt.Errorf("storage: read %s payload: %w", path, err)
	}

	data := make([]uint32, n)
	for i := range data {
		data[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return h, data, nil
}

// ReadBytes reads a raw byte tensor file written by WriteBytes.
func ReadBytes(path string) (Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Dtype != dtypeUint8 {
		return Header{}, nil, fmt.Errorf("storage: %s has dtype %d, want uint8", path, h.Dtype)
	}

	n := numElements(h.Dims)
	data := make([]byte, n)
	if _, err := io.ReadFull(f, data); err != nil {
		return Header{}, nil, fmt.Errorf("storage: read %s payload: %w", path, err)
	}
	return h, data, nil
}

func numElements(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
