package encoder

import (
	"context"
	"testing"

	"github.com/lateinteraction/colbert-index/internal/mat"
)

func TestLocalEncodeDelegatesToFunc(t *testing.T) {
	calledWith := ([]string)(nil)
	local := NewLocal(func(texts []string) (*mat.Matrix, []int, error) {
		calledWith = texts
		m, _ := mat.NewFromColumns([][]float32{{1, 2}, {3, 4}, {5, 6}})
		return m, []int{2, 1}, nil
	})

	m, doclens, err := local.Encode(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(calledWith) != 2 {
		t.Fatalf("expected func to receive 2 texts, got %d", len(calledWith))
	}
	if m.Cols() != 3 {
		t.Errorf("want 3 columns, got %d", m.Cols())
	}
	if len(doclens) != 2 || doclens[0] != 2 || doclens[1] != 1 {
		t.Errorf("unexpected doclens: %v", doclens)
	}
}

func TestLocalEncodeRejectsCanceledContext(t *testing.T) {
	local := NewLocal(func(texts []string) (*mat.Matrix, []int, error) {
		t.Fatal("func should not be called with a canceled context")
		return nil, nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := local.Encode(ctx, []string{"x"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
