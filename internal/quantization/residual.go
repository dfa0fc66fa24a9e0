package quantization

import (
	"fmt"
	"sort"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

// ResidualCodec holds the per-dimension quantile buckets used to quantize
// residual vectors (spec §4.3 steps 1-5, §4.4 steps 3-5).
//
// A residual is the difference between an embedding and the centroid it is
// assigned to. Each dimension of a residual is independently bucketed into
// 2^Bits buckets using BucketCutoffs (2^Bits - 1 boundaries shared across all
// D dimensions) and dequantized back to a representative value using
// BucketWeights (2^Bits values, the midpoint of each bucket's quantile
// range). AvgResidual is the mean absolute residual magnitude over the
// calibration sample, reported for diagnostics.
type ResidualCodec struct {
	Dim          int
	Bits         int
	BucketCutoffs []float32
	BucketWeights []float32
	AvgResidual  float32
}

// TrainResidualCodec calibrates a ResidualCodec from held-out embeddings and
// their already-trained centroids (spec §4.3 steps 1-5).
//
// Steps:
//  1. assign each held-out column to its nearest centroid (max dot product)
//  2. compute the residual vector (embedding - assigned centroid)
//  3. flatten every residual across all dimensions and embeddings into one
//     population
//  4. compute 2^bits-1 cutoffs (quantiles at i/2^bits for i=1..2^bits-1) and
//     2^bits weights (quantiles at the midpoint of each bucket) from that
//     flattened population, sorting it once
//  5. record the mean absolute residual as AvgResidual
//
// Returns a fatal error if the held-out population is smaller than 2^bits,
// since quantile estimates at that resolution would be degenerate (spec §7).
func TrainResidualCodec(heldOut, centroids *mat.Matrix, bits int, metric DistanceMetric) (*ResidualCodec, error) {
	dim := heldOut.Rows()
	n := heldOut.Cols()
	if n == 0 {
		return nil, fmt.Errorf("quantization: empty held-out sample for residual calibration")
	}

	numBuckets := 1 << uint(bits)
	if n < numBuckets {
		return nil, fmt.Errorf("quantization: held-out sample (%d) smaller than bucket count (%d); cannot calibrate residual codec", n, numBuckets)
	}

	assignments := AssignCentroids(heldOut, centroids, metric)

	flat := make([]float32, 0, n*dim)
	var absSum float64

	for i := 0; i < n; i++ {
		vec := heldOut.Column(i)
		c := centroids.Column(int(assignments[i]))
		for d := 0; d < dim; d++ {
			r := vec[d] - c[d]
			flat = append(flat, r)
			if r < 0 {
				absSum -= float64(r)
			} else {
				absSum += float64(r)
			}
		}
	}

	// Sort once; every cutoff/weight quantile below reuses this order.
	sort.Slice(flat, func(i, j int) bool { return flat[i] < flat[j] })

	cutoffs := make([]float32, numBuckets-1)
	for i := 1; i < numBuckets; i++ {
		p := float32(i) / float32(numBuckets)
		cutoffs[i-1] = QuantileSorted(flat, p)
	}

	weights := make([]float32, numBuckets)
	for i := 0; i < numBuckets; i++ {
		p := (float32(i) + 0.5) / float32(numBuckets)
		weights[i] = QuantileSorted(flat, p)
	}

	return &ResidualCodec{
		Dim:           dim,
		Bits:          bits,
		BucketCutoffs: cutoffs,
		BucketWeights: weights,
		AvgResidual:   float32(absSum / float64(len(flat))),
	}, nil
}

// EncodeResidual computes the quantized bucket index for a single residual
// scalar value: the count of cutoffs not exceeding it (spec §4.4 step 4).
func (rc *ResidualCodec) EncodeResidual(r float32) uint8 {
	idx := 0
	for _, c := range rc.BucketCutoffs {
		if r >= c {
			idx++
		} else {
			break
		}
	}
	return uint8(idx)
}

// DecodeResidual maps a bucket index back to its representative weight.
func (rc *ResidualCodec) DecodeResidual(idx uint8) float32 {
	return rc.BucketWeights[idx]
}

// EncodeVector computes the centroid and packed residual bytes for a single
// embedding (spec §4.4 steps 2-5): assign to nearest centroid, compute the
// per-dimension residual, bucket each dimension, and bit-pack the result.
func (rc *ResidualCodec) EncodeVector(vec []float32, centroids *mat.Matrix, metric DistanceMetric) (code uint32, packed []byte) {
	best := nearestCentroid(vec, centroids, metric)
	c := centroids.Column(best)

	indices := make([]uint8, rc.Dim)
	for d := 0; d < rc.Dim; d++ {
		indices[d] = rc.EncodeResidual(vec[d] - c[d])
	}
	return uint32(best), PackResidual(indices, rc.Bits)
}

// DecodeVector reconstructs an approximate embedding from a centroid code
// and its packed residual, for diagnostics and tests.
func (rc *ResidualCodec) DecodeVector(code uint32, packed []byte, centroids *mat.Matrix) ([]float32, error) {
	indices, err := UnpackResidual(packed, rc.Dim, rc.Bits)
	if err != nil {
		return nil, err
	}

	c := centroids.Column(int(code))
	out := make([]float32, rc.Dim)
	for d := 0; d < rc.Dim; d++ {
		out[d] = c[d] + rc.DecodeResidual(indices[d])
	}
	return out, nil
}
