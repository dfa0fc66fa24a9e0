// Package sampler selects a representative subset of passages and obtains
// their embeddings from the encoder, producing the training sample for
// clustering and a held-out subset for residual calibration (spec §4.1).
package sampler

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/lateinteraction/colbert-index/internal/encoder"
	"github.com/lateinteraction/colbert-index/internal/mat"
)

// typicalDoclen is the constant used to size the sample before the real
// average document length is known (spec §4.1).
const typicalDoclen = 120

// Result holds the sampler's output: the training sample and the held-out
// split used for residual codec calibration, plus the average document
// length measured over the full sampled set (used by the planner).
type Result struct {
	Train        *mat.Matrix
	HeldOut      *mat.Matrix
	AvgDoclenEst float64
}

// SampleSize returns Ns = min(num_docs, 1 + floor(16*sqrt(typical_doclen*num_docs))).
func SampleSize(numDocs int) int {
	if numDocs < 1 {
		return 0
	}
	estimate := 1 + int(math.Floor(16*math.Sqrt(float64(typicalDoclen*numDocs))))
	if estimate > numDocs {
		return numDocs
	}
	return estimate
}

// heldOutSize returns Nh = max(1, floor(min(50000, 0.05*m))).
func heldOutSize(m int) int {
	limit := math.Min(50000, 0.05*float64(m))
	n := int(math.Floor(limit))
	if n < 1 {
		n = 1
	}
	return n
}

// TextSource returns the text of passage id pid (1-indexed), the
// collection-loading concern the core depends on as an external
// collaborator (spec §1).
type TextSource interface {
	Text(pid int) (string, error)
}

// Sample draws Ns distinct passage ids uniformly without replacement from
// [1, numDocs], sorts them ascending, encodes them, and splits the result
// into a training sample and a held-out subset (spec §4.1).
func Sample(ctx context.Context, texts TextSource, numDocs int, enc encoder.Encoder, seed int64) (*Result, error) {
	if numDocs < 1 {
		return nil, fmt.Errorf("sampler: num_docs must be > 0, got %d", numDocs)
	}

	ns := SampleSize(numDocs)
	r := rand.New(rand.NewSource(seed))
	ids := r.Perm(numDocs)[:ns]
	for i, id := range ids {
		ids[i] = id + 1 // 1-indexed passage ids
	}
	sort.Ints(ids)

	batch := make([]string, ns)
	for i, pid := range ids {
		text, err := texts.Text(pid)
		if err != nil {
			return nil, fmt.Errorf("sampler: load passage %d: %w", pid, err)
		}
		batch[i] = text
	}

	embeddings, doclens, err := enc.Encode(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("sampler: encode failed: %w", err)
	}

	sum := 0
	for _, d := range doclens {
		sum += d
	}
	if embeddings.Cols() != sum {
		return nil, fmt.Errorf("sampler: encoder returned %d columns, want sum(doclens) = %d", embeddings.Cols(), sum)
	}

	avgDoclenEst := 0.0
	if len(doclens) > 0 {
		avgDoclenEst = float64(sum) / float64(len(doclens))
	}

	m := embeddings.Cols()
	perm := r.Perm(m)

	nh := heldOutSize(m)
	trainCols := make([][]float32, 0, m-nh)
	heldOutCols := make([][]float32, 0, nh)

	for i, col := range perm {
		vec := embeddings.Column(col)
		cp := make([]float32, len(vec))
		copy(cp, vec)
		if i >= m-nh {
			heldOutCols = append(heldOutCols, cp)
		} else {
			trainCols = append(trainCols, cp)
		}
	}

	train, err := mat.NewFromColumns(trainCols)
	if err != nil {
		return nil, fmt.Errorf("sampler: build training matrix: %w", err)
	}
	heldOut, err := mat.NewFromColumns(heldOutCols)
	if err != nil {
		return nil, fmt.Errorf("sampler: build held-out matrix: %w", err)
	}

	return &Result{
		Train:        train,
		HeldOut:      heldOut,
		AvgDoclenEst: avgDoclenEst,
	}, nil
}
