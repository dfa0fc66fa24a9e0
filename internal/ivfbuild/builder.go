// Package ivfbuild implements the IVF Builder stage: after all chunks
// exist, it reads the concatenated centroid-code stream and produces an
// inverted file — a permutation grouping embeddings by centroid, plus
// per-centroid lengths (spec §4.5).
package ivfbuild

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/lateinteraction/colbert-index/internal/storage"
)

// Result holds the built inverted file.
type Result struct {
	// IVF is a 1-based permutation of global embedding ids, ordered so
	// that codesGlobal[ivf[p]-1] is non-decreasing in p.
	IVF []uint32

	// Lengths[k] is the number of embeddings assigned to centroid code k
	// (0-indexed), for k = 0..numPartitions-1.
	Lengths []uint32
}

// Build reads numChunks chunk code files from indexPath in order and builds
// the inverted file over numPartitions centroids (spec §4.5).
func Build(indexPath string, numChunks, numPartitions int) (*Result, error) {
	var codesGlobal []uint32

	for i := 1; i <= numChunks; i++ {
		path := filepath.Join(indexPath, fmt.Sprintf("%d.codes", i))
		_, codes, err := storage.ReadUint32(path)
		if err != nil {
			return nil, fmt.Errorf("ivfbuild: read chunk %d codes: %w", i, err)
		}
		codesGlobal = append(codesGlobal, codes...)
	}

	return BuildFromCodes(codesGlobal, numPartitions)
}

// BuildFromCodes builds the inverted file directly from an in-memory
// concatenated code stream (exercised directly by tests; Build is the
// disk-backed wrapper the pipeline calls).
func BuildFromCodes(codesGlobal []uint32, numPartitions int) (*Result, error) {
	n := len(codesGlobal)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	// sort.SliceStable preserves relative order of equal-code entries,
	// which keeps within-centroid ordering deterministic by global
	// embedding id (spec §4.5: "sort must be stable").
	sort.SliceStable(order, func(a, b int) bool {
		return codesGlobal[order[a]] < codesGlobal[order[b]]
	})

	ivf := make([]uint32, n)
	for p, idx := range order {
		ivf[p] = uint32(idx + 1) // global embedding ids are 1-based
	}

	lengths := make([]uint32, numPartitions)
	for _, c := range codesGlobal {
		if int(c) >= numPartitions {
			return nil, fmt.Errorf("ivfbuild: code %d out of range for %d partitions", c, numPartitions)
		}
		lengths[c]++
	}

	return &Result{IVF: ivf, Lengths: lengths}, nil
}

// Persist writes the ivf and ivf_lengths tensor files under indexPath
// (spec §6 on-disk layout).
func (r *Result) Persist(indexPath string) error {
	ivfPath := filepath.Join(indexPath, "ivf")
	if err := storage.WriteUint32(ivfPath, []int{len(r.IVF)}, r.IVF); err != nil {
		return fmt.Errorf("ivfbuild: write ivf: %w", err)
	}

	lengthsPath := filepath.Join(indexPath, "ivf_lengths")
	if err := storage.WriteUint32(lengthsPath, []int{len(r.Lengths)}, r.Lengths); err != nil {
		return fmt.Errorf("ivfbuild: write ivf_lengths: %w", err)
	}

	return nil
}
