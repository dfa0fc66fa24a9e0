package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lateinteraction/colbert-index/internal/config"
	"github.com/lateinteraction/colbert-index/internal/encoder"
	"github.com/lateinteraction/colbert-index/internal/mat"
	"github.com/lateinteraction/colbert-index/pkg/observability"
)

func writeCollection(t *testing.T, numDocs int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.tsv")

	var b strings.Builder
	for i := 1; i <= numDocs; i++ {
		fmt.Fprintf(&b, "passage %d about topic %d\n", i, i%8)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// ringEncoder places every passage's 5 token embeddings on one of 8 points
// around the unit circle, keyed by the "topic N" suffix parsed from the
// text, giving k-means several well-separated clusters to find.
func ringEncoder() encoder.Encoder {
	return encoder.NewLocal(func(texts []string) (*mat.Matrix, []int, error) {
		const doclen = 5
		doclens := make([]int, len(texts))
		cols := make([][]float32, 0, len(texts)*doclen)

		for i, text := range texts {
			doclens[i] = doclen
			var pid, topic int
			fmt.Sscanf(text, "passage %d about topic %d", &pid, &topic)
			angle := 2 * math.Pi * float64(topic) / 8
			vec := []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
			for j := 0; j < doclen; j++ {
				cols = append(cols, vec)
			}
		}

		m, err := mat.NewFromColumns(cols)
		return m, doclens, err
	})
}

func TestBuildProducesAVerifiableIndex(t *testing.T) {
	collPath := writeCollection(t, 100)
	indexPath := filepath.Join(t.TempDir(), "index")

	cfg := config.Default()
	cfg.CollectionPath = collPath
	cfg.IndexPath = indexPath
	cfg.Dim = 2
	cfg.Chunksize = 40

	logger := observability.NewLogger(observability.ERROR, os.Stderr)
	metrics := observability.NewMetrics()

	if err := Build(context.Background(), cfg, ringEncoder(), logger, metrics); err != nil {
		t.Fatalf("Build: %v", err)
	}

	check, err := Verify(indexPath)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !check.OK {
		t.Fatalf("expected complete index, missing: %v", check.Missing)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	logger := observability.NewLogger(observability.ERROR, os.Stderr)
	metrics := observability.NewMetrics()

	if err := Build(context.Background(), cfg, ringEncoder(), logger, metrics); err == nil {
		t.Fatal("expected error for config missing collection_path/index_path")
	}
}
