package quantization

import (
	"math"
	"testing"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

func TestQuantileSortedMonotonic(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	prev := float32(math.Inf(-1))
	for _, p := range []float32{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		v := QuantileSorted(data, p)
		if v < prev {
			t.Fatalf("quantile not monotonic at p=%v: got %v after %v", p, v, prev)
		}
		prev = v
	}
	if got := QuantileSorted(data, 0); got != 1 {
		t.Errorf("p=0 want 1, got %v", got)
	}
	if got := QuantileSorted(data, 1); got != 10 {
		t.Errorf("p=1 want 10, got %v", got)
	}
}

func TestQuantileSingleElement(t *testing.T) {
	if got := Quantile([]float32{42}, 0.5); got != 42 {
		t.Errorf("want 42, got %v", got)
	}
}

func TestPackUnpackResidualRoundTrip(t *testing.T) {
	for _, bits := range []int{1, 2, 4} {
		dim := 128
		indices := make([]uint8, dim)
		max := uint8(1<<uint(bits)) - 1
		for i := range indices {
			indices[i] = uint8(i) % (max + 1)
		}

		packed := PackResidual(indices, bits)
		if len(packed) != PackedRowBytes(dim, bits) {
			t.Fatalf("bits=%d: packed length %d, want %d", bits, len(packed), PackedRowBytes(dim, bits))
		}

		got, err := UnpackResidual(packed, dim, bits)
		if err != nil {
			t.Fatalf("bits=%d: unpack error: %v", bits, err)
		}
		for i := range indices {
			if got[i] != indices[i] {
				t.Fatalf("bits=%d: index %d: got %d, want %d", bits, i, got[i], indices[i])
			}
		}
	}
}

func TestPackedRowBytesExample(t *testing.T) {
	if got := PackedRowBytes(128, 2); got != 32 {
		t.Errorf("D=128,B=2: want 32 bytes, got %d", got)
	}
}

func TestTrainResidualCodecRejectsSmallSample(t *testing.T) {
	centroids, _ := mat.NewFromColumns([][]float32{{1, 0}, {0, 1}})
	heldOut, _ := mat.NewFromColumns([][]float32{{1, 0}})

	_, err := TrainResidualCodec(heldOut, centroids, 2, DotProductDistance)
	if err == nil {
		t.Fatal("expected error for held-out sample smaller than bucket count")
	}
}

func TestResidualCodecEncodeDecodeApproximatesOriginal(t *testing.T) {
	centroids, err := mat.NewFromColumns([][]float32{
		{1, 0, 0},
		{0, 1, 0},
	})
	if err != nil {
		t.Fatalf("centroids: %v", err)
	}

	cols := make([][]float32, 0, 64)
	for i := 0; i < 64; i++ {
		base := []float32{1, 0, 0}
		if i%2 == 1 {
			base = []float32{0, 1, 0}
		}
		jitter := float32(i%7-3) * 0.01
		cols = append(cols, []float32{base[0] + jitter, base[1] - jitter, base[2] + jitter})
	}
	heldOut, err := mat.NewFromColumns(cols)
	if err != nil {
		t.Fatalf("heldOut: %v", err)
	}

	codec, err := TrainResidualCodec(heldOut, centroids, 2, DotProductDistance)
	if err != nil {
		t.Fatalf("TrainResidualCodec: %v", err)
	}

	if len(codec.BucketCutoffs) != 3 {
		t.Errorf("bits=2: want 3 cutoffs, got %d", len(codec.BucketCutoffs))
	}
	if len(codec.BucketWeights) != 4 {
		t.Errorf("bits=2: want 4 weights, got %d", len(codec.BucketWeights))
	}

	probe := []float32{1.01, -0.01, 0.01}
	code, packed := codec.EncodeVector(probe, centroids, DotProductDistance)
	if code != 0 {
		t.Errorf("expected nearest centroid 0, got %d", code)
	}

	recon, err := codec.DecodeVector(code, packed, centroids)
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	for d := range probe {
		if diff := math.Abs(float64(recon[d] - probe[d])); diff > 0.2 {
			t.Errorf("dim %d: reconstructed %v too far from %v", d, recon[d], probe[d])
		}
	}
}
