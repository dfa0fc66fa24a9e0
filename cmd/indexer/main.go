package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lateinteraction/colbert-index/internal/config"
	"github.com/lateinteraction/colbert-index/internal/encoder"
	"github.com/lateinteraction/colbert-index/internal/mat"
	"github.com/lateinteraction/colbert-index/internal/pipeline"
	"github.com/lateinteraction/colbert-index/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "build":
		handleBuild(os.Args[2:])
	case "verify":
		handleVerify(os.Args[2:])
	case "version":
		fmt.Printf("colbert-indexer version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func handleBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		collectionPath = fs.String("collection", "", "path to the passage collection (one passage per line, required)")
		indexPath      = fs.String("index", "", "directory to write the index into (required)")
		dim            = fs.Int("dim", 0, "per-token embedding dimension (overrides env/default)")
		nbits          = fs.Int("nbits", 0, "residual quantization bits (overrides env/default)")
		chunksize      = fs.Int("chunksize", 0, "passages per chunk, 0 lets the planner decide")
		grpcAddr       = fs.String("encoder-addr", "", "gRPC address of the neural encoder service (empty uses an in-process stub, for dry runs only)")
		jwtSecret      = fs.String("encoder-jwt-secret", "", "HMAC secret used to mint per-request encoder service tokens")
		metricsAddr    = fs.String("metrics-addr", "", "if set, serve Prometheus metrics on this address for the duration of the build (e.g. :9090)")
		logLevel       = fs.String("log-level", "info", "DEBUG, INFO, WARN, ERROR, or FATAL")
	)
	fs.Parse(args)

	cfg := config.LoadFromEnv()
	if *collectionPath != "" {
		cfg.CollectionPath = *collectionPath
	}
	if *indexPath != "" {
		cfg.IndexPath = *indexPath
	}
	if *dim > 0 {
		cfg.Dim = *dim
	}
	if *nbits > 0 {
		cfg.NBits = *nbits
	}
	if *chunksize > 0 {
		cfg.Chunksize = *chunksize
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(*logLevel), os.Stderr)
	metrics := observability.NewMetrics()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	enc, closeEnc := buildEncoder(*grpcAddr, *jwtSecret, logger)
	if closeEnc != nil {
		defer closeEnc()
	}

	ctx := context.Background()
	start := time.Now()
	if err := pipeline.Build(ctx, cfg, enc, logger, metrics); err != nil {
		logger.Error("build failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("build finished", map[string]interface{}{
		"index_path": cfg.IndexPath,
		"elapsed":    time.Since(start).String(),
	})
}

func handleVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	indexPath := fs.String("index", "", "directory containing the index to verify (required)")
	fs.Parse(args)

	if *indexPath == "" {
		fmt.Println("Error: -index is required")
		fs.Usage()
		os.Exit(1)
	}

	check, err := pipeline.Verify(*indexPath)
	if err != nil {
		fmt.Printf("verify failed: %v\n", err)
		os.Exit(1)
	}
	if !check.OK {
		fmt.Printf("index at %s is INCOMPLETE, missing files:\n", *indexPath)
		for _, m := range check.Missing {
			fmt.Printf("  - %s\n", m)
		}
		os.Exit(1)
	}
	fmt.Printf("index at %s is complete\n", *indexPath)
}

// buildEncoder wires a remote gRPC encoder when an address is given, or an
// in-process stub otherwise. The stub exists only for dry runs against the
// pipeline's non-neural stages; it never produces meaningful embeddings.
func buildEncoder(addr, jwtSecret string, logger *observability.Logger) (encoder.Encoder, func()) {
	if addr == "" {
		logger.Warn("no -encoder-addr given, using an in-process stub encoder", nil)
		return encoder.NewLocal(stubEncode), nil
	}

	client, err := encoder.NewGRPCClient(encoder.GRPCClientConfig{
		Addr:      addr,
		JWTSecret: jwtSecret,
	})
	if err != nil {
		logger.Error("failed to dial encoder service", map[string]interface{}{"addr": addr, "error": err.Error()})
		os.Exit(1)
	}
	return client, func() { client.Close() }
}

// stubEncode produces zero-valued single-token embeddings. It lets a dry run
// exercise the sampler/planner/chunk/ivf/manifest machinery without a real
// encoder service, at the cost of a meaningless (all-zero) index.
func stubEncode(texts []string) (*mat.Matrix, []int, error) {
	doclens := make([]int, len(texts))
	cols := make([][]float32, len(texts))
	for i := range texts {
		doclens[i] = 1
		cols[i] = make([]float32, 1)
	}
	m, err := mat.NewFromColumns(cols)
	return m, doclens, err
}

func serveMetrics(addr string, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", map[string]interface{}{"addr": addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
	}
}

func showUsage() {
	fmt.Println("colbert-indexer - offline ColBERT late-interaction index builder")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  colbert-indexer <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  build      run the full indexing pipeline over a collection")
	fmt.Println("  verify     check that an existing index directory is complete")
	fmt.Println("  version    print the indexer version")
	fmt.Println()
	fmt.Println("Build options:")
	fmt.Println("  -collection PATH       path to the passage collection (required)")
	fmt.Println("  -index PATH            directory to write the index into (required)")
	fmt.Println("  -dim N                 per-token embedding dimension")
	fmt.Println("  -nbits N               residual quantization bits")
	fmt.Println("  -chunksize N           passages per chunk")
	fmt.Println("  -encoder-addr ADDR     gRPC address of the neural encoder service")
	fmt.Println("  -encoder-jwt-secret S  HMAC secret for minting encoder service tokens")
	fmt.Println("  -metrics-addr ADDR     serve Prometheus metrics during the build")
	fmt.Println("  -log-level LEVEL       DEBUG, INFO, WARN, ERROR, or FATAL")
	fmt.Println()
	fmt.Println("Verify options:")
	fmt.Println("  -index PATH            directory containing the index to verify")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  COLBERT_COLLECTION_PATH, COLBERT_INDEX_PATH, COLBERT_DIM, COLBERT_NBITS, ...")
	fmt.Println("  see internal/config for the full list of COLBERT_* overrides")
}
