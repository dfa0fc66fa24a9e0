package quantization

import (
	"math"
	"testing"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

func TestTrainCentroidsDeterministicWithSeed(t *testing.T) {
	cols := make([][]float32, 0, 40)
	for i := 0; i < 20; i++ {
		cols = append(cols, []float32{1, 0.01 * float32(i)})
	}
	for i := 0; i < 20; i++ {
		cols = append(cols, []float32{-1, 0.01 * float32(i)})
	}
	sample, err := mat.NewFromColumns(cols)
	if err != nil {
		t.Fatalf("NewFromColumns: %v", err)
	}

	cfg := &Config{NumIterations: 10, DistanceMetric: EuclideanDistance, RandomSeed: 7}

	a, err := TrainCentroids(sample, 2, cfg)
	if err != nil {
		t.Fatalf("TrainCentroids: %v", err)
	}
	b, err := TrainCentroids(sample, 2, cfg)
	if err != nil {
		t.Fatalf("TrainCentroids: %v", err)
	}

	for c := 0; c < 2; c++ {
		ca, cb := a.Column(c), b.Column(c)
		for d := range ca {
			if ca[d] != cb[d] {
				t.Fatalf("centroid %d dim %d differs across identical runs: %v vs %v", c, d, ca[d], cb[d])
			}
		}
	}
}

func TestTrainCentroidsRejectsTooFewSamples(t *testing.T) {
	sample, _ := mat.NewFromColumns([][]float32{{1, 0}})
	_, err := TrainCentroids(sample, 4, DefaultConfig())
	if err == nil {
		t.Fatal("expected error when sample count is smaller than k")
	}
}

func TestAssignCentroidsBreaksTiesTowardSmallestIndex(t *testing.T) {
	centroids, _ := mat.NewFromColumns([][]float32{{1, 0}, {1, 0}, {0, 1}})
	vectors, _ := mat.NewFromColumns([][]float32{{1, 0}})

	codes := AssignCentroids(vectors, centroids, DotProductDistance)
	if codes[0] != 0 {
		t.Errorf("expected tie broken toward index 0, got %d", codes[0])
	}
}

func TestTrainCentroidsEmptyClusterRetainsCentroid(t *testing.T) {
	// Two far-apart points and three centroids: whatever columns are drawn,
	// two centroids start at (10,0) and the later of the two never wins any
	// assignment (ties go to the smaller index); its centroid should be left
	// untouched at (10,0) rather than reseeded.
	sample, _ := mat.NewFromColumns([][]float32{{10, 0}, {10, 0}, {10, 0}, {-10, 0}})
	cfg := &Config{NumIterations: 3, DistanceMetric: EuclideanDistance, RandomSeed: 1}

	centroids, err := TrainCentroids(sample, 3, cfg)
	if err != nil {
		t.Fatalf("TrainCentroids: %v", err)
	}
	if centroids.Cols() != 3 {
		t.Fatalf("want 3 centroids, got %d", centroids.Cols())
	}

	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }
	atPos, atNeg := 0, 0
	for c := 0; c < centroids.Cols(); c++ {
		col := centroids.Column(c)
		switch {
		case near(col[0], 10) && near(col[1], 0):
			atPos++
		case near(col[0], -10) && near(col[1], 0):
			atNeg++
		}
	}
	if atPos != 2 || atNeg != 1 {
		t.Errorf("want two centroids at (10,0) and one at (-10,0), got %v", centroids.Data())
	}
}
