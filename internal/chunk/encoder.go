// Package chunk implements the Chunk Encoder stage: it streams the full
// collection in fixed-size passage batches, compresses each batch's
// embeddings into (centroid code, quantized residual) pairs, and persists
// one chunk on disk along with its metadata (spec §4.4).
package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lateinteraction/colbert-index/internal/encoder"
	"github.com/lateinteraction/colbert-index/internal/mat"
	"github.com/lateinteraction/colbert-index/internal/quantization"
	"github.com/lateinteraction/colbert-index/internal/storage"
)

// TextSource returns the text of passage id pid (1-indexed).
type TextSource interface {
	Text(pid int) (string, error)
}

// Metadata is the per-chunk JSON sidecar (spec §4.4 step 6, §6 on-disk
// layout). EmbeddingOffset starts as a placeholder (0) and is filled in by
// the manifest writer once every chunk's size is known.
type Metadata struct {
	PassageOffset   int `json:"passage_offset"`
	NumPassages     int `json:"num_passages"`
	NumEmbeddings   int `json:"num_embeddings"`
	EmbeddingOffset int `json:"embedding_offset"`
}

// Result summarizes one encoded chunk, returned to the pipeline so it can
// feed the IVF builder and manifest writer without re-reading every file.
type Result struct {
	ChunkIdx      int
	NumPassages   int
	NumEmbeddings int
}

// Encode produces and persists chunk chunkIdx (1-based) covering passages
// [passageOffset, passageOffset+numPassages-1], using centroids and codec
// from the trainer (spec §4.4 steps 1-6).
func Encode(ctx context.Context, indexPath string, chunkIdx, passageOffset, numPassages int, texts TextSource, enc encoder.Encoder, centroids *mat.Matrix, codec *quantization.ResidualCodec, metric quantization.DistanceMetric) (*Result, error) {
	if numPassages < 1 {
		return nil, fmt.Errorf("chunk %d: numPassages must be > 0, got %d", chunkIdx, numPassages)
	}

	batch := make([]string, numPassages)
	for i := 0; i < numPassages; i++ {
		pid := passageOffset + i
		text, err := texts.Text(pid)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: load passage %d: %w", chunkIdx, pid, err)
		}
		batch[i] = text
	}

	embeddings, doclens, err := enc.Encode(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: encode: %w", chunkIdx, err)
	}

	n := 0
	for _, d := range doclens {
		n += d
	}
	if embeddings.Cols() != n {
		return nil, fmt.Errorf("chunk %d: encoder returned %d columns, want sum(doclens) = %d", chunkIdx, embeddings.Cols(), n)
	}

	codes := make([]uint32, n)
	bytesPerRow := quantization.PackedRowBytes(codec.Dim, codec.Bits)
	residuals := make([]byte, bytesPerRow*n)

	for i := 0; i < n; i++ {
		code, packed := codec.EncodeVector(embeddings.Column(i), centroids, metric)
		codes[i] = code
		copy(residuals[i*bytesPerRow:(i+1)*bytesPerRow], packed)
	}

	if err := persist(indexPath, chunkIdx, codes, residuals, doclens, bytesPerRow, passageOffset, numPassages); err != nil {
		return nil, err
	}

	return &Result{ChunkIdx: chunkIdx, NumPassages: numPassages, NumEmbeddings: n}, nil
}

func persist(indexPath string, chunkIdx int, codes []uint32, residuals []byte, doclens []int, bytesPerRow, passageOffset, numPassages int) error {
	codesPath := filepath.Join(indexPath, fmt.Sprintf("%d.codes", chunkIdx))
	if err := storage.WriteUint32(codesPath, []int{len(codes)}, codes); err != nil {
		return fmt.Errorf("chunk %d: write codes: %w", chunkIdx, err)
	}

	residualsPath := filepath.Join(indexPath, fmt.Sprintf("%d.residuals", chunkIdx))
	numRows := 0
	if bytesPerRow > 0 {
		numRows = len(residuals) / bytesPerRow
	}
	if err := storage.WriteBytes(residualsPath, []int{bytesPerRow, numRows}, residuals); err != nil {
		return fmt.Errorf("chunk %d: write residuals: %w", chunkIdx, err)
	}

	doclensPath := filepath.Join(indexPath, fmt.Sprintf("doclens.%d", chunkIdx))
	doclensU32 := make([]uint32, len(doclens))
	for i, d := range doclens {
		doclensU32[i] = uint32(d)
	}
	if err := storage.WriteUint32(doclensPath, []int{len(doclensU32)}, doclensU32); err != nil {
		return fmt.Errorf("chunk %d: write doclens: %w", chunkIdx, err)
	}

	meta := Metadata{
		PassageOffset: passageOffset,
		NumPassages:   numPassages,
		NumEmbeddings: len(codes),
	}
	metaPath := filepath.Join(indexPath, fmt.Sprintf("%d.metadata.json", chunkIdx))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("chunk %d: marshal metadata: %w", chunkIdx, err)
	}
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("chunk %d: write metadata: %w", chunkIdx, err)
	}

	return nil
}

// ReadMetadata reads chunk chunkIdx's metadata sidecar.
func ReadMetadata(indexPath string, chunkIdx int) (*Metadata, error) {
	path := filepath.Join(indexPath, fmt.Sprintf("%d.metadata.json", chunkIdx))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: read metadata: %w", chunkIdx, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("chunk %d: unmarshal metadata: %w", chunkIdx, err)
	}
	return &meta, nil
}

// WriteMetadata overwrites chunk chunkIdx's metadata sidecar, used by the
// manifest writer once embedding_offset is known (spec §4.6).
func WriteMetadata(indexPath string, chunkIdx int, meta *Metadata) error {
	path := filepath.Join(indexPath, fmt.Sprintf("%d.metadata.json", chunkIdx))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("chunk %d: marshal metadata: %w", chunkIdx, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("chunk %d: write metadata: %w", chunkIdx, err)
	}
	return nil
}
