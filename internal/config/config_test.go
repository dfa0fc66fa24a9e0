package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesSpecTable(t *testing.T) {
	cfg := Default()
	if cfg.Dim != 128 {
		t.Errorf("dim = %d, want 128", cfg.Dim)
	}
	if cfg.NBits != 2 {
		t.Errorf("nbits = %d, want 2", cfg.NBits)
	}
	if cfg.KmeansNIters != 20 {
		t.Errorf("kmeans_niters = %d, want 20", cfg.KmeansNIters)
	}
	if cfg.IndexBsize != 64 {
		t.Errorf("index_bsize = %d, want 64", cfg.IndexBsize)
	}
	if cfg.UseGPU {
		t.Error("use_gpu should default to false")
	}
}

func TestValidateRejectsMissingPaths(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing collection_path/index_path")
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Default()
	cfg.CollectionPath = "collection.tsv"
	cfg.IndexPath = "/tmp/idx"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("COLBERT_DIM", "64")
	os.Setenv("COLBERT_NBITS", "4")
	defer os.Unsetenv("COLBERT_DIM")
	defer os.Unsetenv("COLBERT_NBITS")

	cfg := LoadFromEnv()
	if cfg.Dim != 64 {
		t.Errorf("dim = %d, want 64", cfg.Dim)
	}
	if cfg.NBits != 4 {
		t.Errorf("nbits = %d, want 4", cfg.NBits)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.CollectionPath = "c.tsv"
	cfg.IndexPath = "/tmp/idx"

	path := filepath.Join(t.TempDir(), "config.json")
	if err := cfg.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty config.json")
	}
}
