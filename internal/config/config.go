// Package config holds the scalar options the core consumes as a bag of
// values (spec §1: "the config as a bag of scalar options enumerated in
// §6"). This package defines the option set, its defaults, validation, a
// COLBERT_* environment-variable loader, and the config.json echo.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config enumerates the options consumed by the core (spec §6).
type Config struct {
	CollectionPath string `json:"collection_path"`
	IndexPath      string `json:"index_path"`

	Dim   int `json:"dim"`
	NBits int `json:"nbits"`

	KmeansNIters int `json:"kmeans_niters"`
	IndexBsize   int `json:"index_bsize"`
	Chunksize    int `json:"chunksize"` // 0 means "derive from num_docs/nranks"

	DocMaxlen       int    `json:"doc_maxlen"`
	DocToken        string `json:"doc_token"`
	Skiplist        string `json:"skiplist"`
	MaskPunctuation bool   `json:"mask_punctuation"`

	UseGPU bool `json:"use_gpu"`

	Nranks int `json:"nranks"`

	RandomSeed int64 `json:"random_seed"`
}

// Default returns the option defaults from spec §6's configuration table.
func Default() *Config {
	return &Config{
		Dim:             128,
		NBits:           2,
		KmeansNIters:    20,
		IndexBsize:      64,
		Chunksize:       0,
		DocMaxlen:       180,
		DocToken:        "[D]",
		MaskPunctuation: true,
		UseGPU:          false,
		Nranks:          1,
		RandomSeed:      42,
	}
}

// envPrefix namespaces environment overrides the way the teacher's loader
// namespaces its own (VECTOR_*); this pipeline's prefix is COLBERT_.
const envPrefix = "COLBERT_"

// LoadFromEnv returns Default() with any COLBERT_* environment variables
// applied on top.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv(envPrefix + "COLLECTION_PATH"); v != "" {
		cfg.CollectionPath = v
	}
	if v := os.Getenv(envPrefix + "INDEX_PATH"); v != "" {
		cfg.IndexPath = v
	}
	if v := os.Getenv(envPrefix + "DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dim = n
		}
	}
	if v := os.Getenv(envPrefix + "NBITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NBits = n
		}
	}
	if v := os.Getenv(envPrefix + "KMEANS_NITERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KmeansNIters = n
		}
	}
	if v := os.Getenv(envPrefix + "INDEX_BSIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IndexBsize = n
		}
	}
	if v := os.Getenv(envPrefix + "CHUNKSIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunksize = n
		}
	}
	if v := os.Getenv(envPrefix + "DOC_MAXLEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DocMaxlen = n
		}
	}
	if v := os.Getenv(envPrefix + "DOC_TOKEN"); v != "" {
		cfg.DocToken = v
	}
	if v := os.Getenv(envPrefix + "SKIPLIST"); v != "" {
		cfg.Skiplist = v
	}
	if v := os.Getenv(envPrefix + "MASK_PUNCTUATION"); v == "false" {
		cfg.MaskPunctuation = false
	}
	if v := os.Getenv(envPrefix + "USE_GPU"); v == "true" {
		cfg.UseGPU = true
	}
	if v := os.Getenv(envPrefix + "NRANKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Nranks = n
		}
	}
	if v := os.Getenv(envPrefix + "RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = n
		}
	}

	return cfg
}

// Validate rejects nonsensical configuration at entry (spec §7:
// "configuration error: nonsensical sizes ... fatal at entry").
func (c *Config) Validate() error {
	if c.CollectionPath == "" {
		return fmt.Errorf("config: collection_path not specified")
	}
	if c.IndexPath == "" {
		return fmt.Errorf("config: index_path not specified")
	}
	if c.Dim < 1 {
		return fmt.Errorf("config: invalid dim %d (must be > 0)", c.Dim)
	}
	if c.NBits < 1 {
		return fmt.Errorf("config: invalid nbits %d (must be >= 1)", c.NBits)
	}
	if c.KmeansNIters < 1 {
		return fmt.Errorf("config: invalid kmeans_niters %d (must be > 0)", c.KmeansNIters)
	}
	if c.IndexBsize < 1 {
		return fmt.Errorf("config: invalid index_bsize %d (must be > 0)", c.IndexBsize)
	}
	if c.Chunksize < 0 {
		return fmt.Errorf("config: invalid chunksize %d (must be >= 0)", c.Chunksize)
	}
	if c.Nranks < 1 {
		return fmt.Errorf("config: invalid nranks %d (must be > 0)", c.Nranks)
	}
	return nil
}

// WriteJSON writes the full config echo required at index_path/config.json
// (spec §6 on-disk layout).
func (c *Config) WriteJSON(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
