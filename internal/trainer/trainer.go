// Package trainer runs k-means over the clustering sample and calibrates
// the residual quantization codec from the held-out split (spec §4.3).
package trainer

import (
	"fmt"

	"github.com/lateinteraction/colbert-index/internal/mat"
	"github.com/lateinteraction/colbert-index/internal/quantization"
)

// Result holds everything the trainer produces: centroids and the
// calibrated residual codec (spec §3 "Centroid set", "Residual codec").
type Result struct {
	Centroids *mat.Matrix
	Codec     *quantization.ResidualCodec
}

// Train runs k-means on sample to produce numPartitions centroids, then
// calibrates a residual codec of nbits from heldOut against those
// centroids (spec §4.3).
func Train(sample, heldOut *mat.Matrix, numPartitions, nbits, kmeansNIters int, seed int64) (*Result, error) {
	if nbits < 1 {
		return nil, fmt.Errorf("trainer: nbits must be >= 1, got %d", nbits)
	}

	cfg := &quantization.Config{
		NumIterations:  kmeansNIters,
		DistanceMetric: quantization.DotProductDistance,
		RandomSeed:     seed,
	}

	centroids, err := quantization.TrainCentroids(sample, numPartitions, cfg)
	if err != nil {
		return nil, fmt.Errorf("trainer: k-means: %w", err)
	}

	codec, err := quantization.TrainResidualCodec(heldOut, centroids, nbits, quantization.DotProductDistance)
	if err != nil {
		return nil, fmt.Errorf("trainer: residual calibration: %w", err)
	}

	return &Result{Centroids: centroids, Codec: codec}, nil
}
