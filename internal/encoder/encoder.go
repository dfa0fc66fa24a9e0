// Package encoder abstracts the neural passage encoder the core pipeline
// depends on but never implements (spec §1 "out of scope", §9 "dynamic
// dispatch over the encoder"). Every stage that needs embeddings — the
// sampler (whose output also supplies the trainer's held-out split) and the
// chunk encoder — calls through this single interface; nothing downstream
// knows whether batches are produced in-process or over the network.
package encoder

import (
	"context"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

// Encoder turns a batch of passage texts into their token embeddings and
// per-passage lengths. Implementations are free to batch, cache, or proxy
// to a remote service; callers only see this one method (spec §9).
type Encoder interface {
	// Encode returns a D x M matrix where M = sum(doclens), plus one
	// doclen per input text giving its contribution to the columns of the
	// matrix, in the same order as texts.
	Encode(ctx context.Context, texts []string) (*mat.Matrix, []int, error)
}
