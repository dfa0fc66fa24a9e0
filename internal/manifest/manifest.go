// Package manifest implements the Manifest Writer stage: it recomputes
// each chunk's embedding_offset, updates its metadata sidecar, and runs the
// existence check over the full on-disk layout (spec §4.6).
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lateinteraction/colbert-index/internal/chunk"
)

// ChunkSize describes one chunk's embedding count, as returned by the
// chunk encoder, in chunk order.
type ChunkSize struct {
	ChunkIdx      int
	NumEmbeddings int
}

// RecomputeOffsets recomputes embedding_offset for every chunk from
// cumulative sums (offset of chunk 1 is 1) and rewrites each
// i.metadata.json (spec §4.6, §3 "embedding_offset[i] = 1 + Σ_{j<i} n_j").
func RecomputeOffsets(indexPath string, sizes []ChunkSize) error {
	offset := 1
	for _, s := range sizes {
		meta, err := chunk.ReadMetadata(indexPath, s.ChunkIdx)
		if err != nil {
			return fmt.Errorf("manifest: read chunk %d metadata: %w", s.ChunkIdx, err)
		}
		meta.EmbeddingOffset = offset
		if err := chunk.WriteMetadata(indexPath, s.ChunkIdx, meta); err != nil {
			return fmt.Errorf("manifest: write chunk %d metadata: %w", s.ChunkIdx, err)
		}
		offset += s.NumEmbeddings
	}
	return nil
}

// RequiredFiles lists every file the existence check requires under
// indexPath (spec §4.6, §6 on-disk layout).
func RequiredFiles(indexPath string, numChunks int) []string {
	files := []string{
		filepath.Join(indexPath, "config.json"),
		filepath.Join(indexPath, "plan.json"),
		filepath.Join(indexPath, "centroids"),
		filepath.Join(indexPath, "bucket_cutoffs"),
		filepath.Join(indexPath, "bucket_weights"),
		filepath.Join(indexPath, "avg_residual"),
		filepath.Join(indexPath, "ivf"),
		filepath.Join(indexPath, "ivf_lengths"),
	}
	for i := 1; i <= numChunks; i++ {
		files = append(files,
			filepath.Join(indexPath, fmt.Sprintf("%d.codes", i)),
			filepath.Join(indexPath, fmt.Sprintf("%d.residuals", i)),
			filepath.Join(indexPath, fmt.Sprintf("doclens.%d", i)),
			filepath.Join(indexPath, fmt.Sprintf("%d.metadata.json", i)),
		)
	}
	return files
}

// CheckResult is the outcome of the existence check (spec §8 invariant 8).
type CheckResult struct {
	OK      bool
	Missing []string
}

// Check runs the existence check over indexPath: every file RequiredFiles
// lists must exist, or the build is incomplete (spec §4.6, §7 "integrity
// error: manifest check finds missing files ⇒ fatal, returns the list").
func Check(indexPath string, numChunks int) (*CheckResult, error) {
	var missing []string
	for _, f := range RequiredFiles(indexPath, numChunks) {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, f)
				continue
			}
			return nil, fmt.Errorf("manifest: stat %s: %w", f, err)
		}
	}
	return &CheckResult{OK: len(missing) == 0, Missing: missing}, nil
}
