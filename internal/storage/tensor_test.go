package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFloat32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "centroids.bin")

	data := []float32{1.5, -2.25, 0, 3.125, 7}
	if err := WriteFloat32(path, []int{5}, data); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}

	h, got, err := ReadFloat32(path)
	if err != nil {
		t.Fatalf("ReadFloat32: %v", err)
	}
	if len(h.Dims) != 1 || h.Dims[0] != 5 {
		t.Fatalf("dims = %v, want [5]", h.Dims)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], data[i])
		}
	}
}

func TestUint32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.bin")

	data := []uint32{0, 1, 2, 4294967295}
	if err := WriteUint32(path, []int{4}, data); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}

	_, got, err := ReadUint32(path)
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], data[i])
		}
	}
}

func TestBytesRoundTripAndShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "residuals.bin")

	data := []byte{0xAB, 0xCD, 0xEF, 0x01}
	if err := WriteBytes(path, []int{2, 2}, data); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	h, got, err := ReadBytes(path)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if h.Dims[0] != 2 || h.Dims[1] != 2 {
		t.Fatalf("dims = %v, want [2 2]", h.Dims)
	}
	if len(got) != len(data) {
		t.Fatalf("length %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("index %d: got %x, want %x", i, got[i], data[i])
		}
	}
}

func TestReadRejectsWrongDtype(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "floats.bin")
	if err := WriteFloat32(path, []int{1}, []float32{1}); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	if _, _, err := ReadUint32(path); err == nil {
		t.Fatal("expected error reading a float32 file as uint32")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.bin")
	if err := WriteFloat32(path, []int{1}, []float32{1}); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	// Corrupt the magic bytes directly by rewriting the file's first bytes.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	copy(raw, "XXXX")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := ReadFloat32(path); err == nil {
		t.Fatal("expected error reading a file with a corrupted magic")
	}
}
