package quantization

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

// TrainCentroids runs the k-means procedure of spec §4.3 over the columns of
// sample, producing a D x K centroid matrix.
//
// Initialization picks k distinct sample columns uniformly at random (not
// k-means++ weighted sampling — the teacher's KMeansPlusPlus used squared-
// distance-weighted seeding, but this spec calls for plain uniform
// selection). Assignment maximizes the similarity of cfg.DistanceMetric per
// column; the trainer uses dot product (embeddings are L2-normalized
// upstream, so cosine and dot coincide). Empty clusters retain
// their previous centroid rather than being re-seeded.
func TrainCentroids(sample *mat.Matrix, k int, cfg *Config) (*mat.Matrix, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	n := sample.Cols()
	if n == 0 {
		return nil, fmt.Errorf("quantization: empty training sample")
	}
	if k <= 0 {
		return nil, fmt.Errorf("quantization: invalid centroid count %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("quantization: not enough sample vectors (%d) for %d centroids", n, k)
	}

	dim := sample.Rows()
	centroids := mat.New(dim, k)

	r := rand.New(rand.NewSource(cfg.RandomSeed))
	chosen := r.Perm(n)[:k]
	for c, idx := range chosen {
		centroids.SetColumn(c, sample.Column(idx))
	}

	assignments := make([]int, n)

	for iter := 0; iter < cfg.NumIterations; iter++ {
		assignParallel(sample, centroids, cfg.DistanceMetric, assignments)

		sums := make([][]float32, k)
		counts := make([]int, k)
		for c := 0; c < k; c++ {
			sums[c] = make([]float32, dim)
		}

		for i := 0; i < n; i++ {
			c := assignments[i]
			counts[c]++
			col := sample.Column(i)
			dst := sums[c]
			for d := 0; d < dim; d++ {
				dst[d] += col[d]
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster: retain previous centroid (spec §9 open
				// question, pinned: no re-seeding).
				continue
			}
			dst := centroids.Column(c)
			src := sums[c]
			inv := 1 / float32(counts[c])
			for d := 0; d < dim; d++ {
				dst[d] = src[d] * inv
			}
		}

		if cfg.Verbose {
			fmt.Printf("kmeans: iteration %d/%d complete\n", iter+1, cfg.NumIterations)
		}
	}

	return centroids, nil
}

// AssignCentroids assigns every column of vectors to the centroid maximizing
// similarity under metric, breaking ties toward the smallest index (spec
// §4.4 step 2). Returns one code per column.
func AssignCentroids(vectors, centroids *mat.Matrix, metric DistanceMetric) []uint32 {
	assignments := make([]int, vectors.Cols())
	assignParallel(vectors, centroids, metric, assignments)

	codes := make([]uint32, len(assignments))
	for i, a := range assignments {
		codes[i] = uint32(a)
	}
	return codes
}

// assignParallel fans the per-column nearest-centroid search out across a
// bounded worker pool, one goroutine per available CPU, mirroring the
// teacher's batch-insert worker pool (channel of work items + WaitGroup).
// The k-means loop and residual calibration (via AssignCentroids) use it;
// the chunk encoder assigns each embedding through nearestCentroid on the
// calling goroutine, and chunks are produced strictly in order (spec §5).
func assignParallel(vectors, centroids *mat.Matrix, metric DistanceMetric, out []int) {
	n := vectors.Cols()
	if n == 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, n)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = nearestCentroid(vectors.Column(i), centroids, metric)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func nearestCentroid(vec []float32, centroids *mat.Matrix, metric DistanceMetric) int {
	best := math.Inf(-1)
	bestIdx := 0
	for c := 0; c < centroids.Cols(); c++ {
		score := float64(similarity(metric, vec, centroids.Column(c)))
		if score > best {
			best = score
			bestIdx = c
		}
	}
	return bestIdx
}
