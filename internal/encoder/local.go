package encoder

import (
	"context"
	"fmt"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

// EncodeFunc produces embeddings and doclens for a batch of texts. It is the
// seam a caller plugs an in-process model (or a deterministic fake, for
// tests) into.
type EncodeFunc func(texts []string) (*mat.Matrix, []int, error)

// Local adapts an EncodeFunc to the Encoder interface without involving any
// transport. Used for unit tests and for deployments that embed the model
// directly in the indexing process.
type Local struct {
	fn EncodeFunc
}

// NewLocal wraps fn as an Encoder.
func NewLocal(fn EncodeFunc) *Local {
	return &Local{fn: fn}
}

// Encode implements Encoder.
func (l *Local) Encode(ctx context.Context, texts []string) (*mat.Matrix, []int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("encoder: context canceled before encode: %w", err)
	}
	return l.fn(texts)
}
