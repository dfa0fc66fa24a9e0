// Package pipeline sequentially orchestrates the six indexing stages —
// Sampler, Planner, Trainer, Chunk Encoder, IVF Builder, Manifest Writer —
// over a single collection (spec §2). No step begins until the prior
// finishes (spec §5: "single-worker sequential pipeline").
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lateinteraction/colbert-index/internal/chunk"
	"github.com/lateinteraction/colbert-index/internal/collection"
	"github.com/lateinteraction/colbert-index/internal/config"
	"github.com/lateinteraction/colbert-index/internal/encoder"
	"github.com/lateinteraction/colbert-index/internal/ivfbuild"
	"github.com/lateinteraction/colbert-index/internal/manifest"
	"github.com/lateinteraction/colbert-index/internal/planner"
	"github.com/lateinteraction/colbert-index/internal/quantization"
	"github.com/lateinteraction/colbert-index/internal/sampler"
	"github.com/lateinteraction/colbert-index/internal/storage"
	"github.com/lateinteraction/colbert-index/internal/trainer"
	"github.com/lateinteraction/colbert-index/pkg/observability"
)

// Build runs the full pipeline: load the collection, sample it, plan
// sizing, train centroids and the residual codec, encode every chunk,
// build the IVF, and finalize the manifest.
func Build(ctx context.Context, cfg *config.Config, enc encoder.Encoder, logger *observability.Logger, metrics *observability.Metrics) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := os.MkdirAll(cfg.IndexPath, 0o755); err != nil {
		return fmt.Errorf("pipeline: create index directory: %w", err)
	}

	logger.Info("loading collection", map[string]interface{}{"path": cfg.CollectionPath})
	coll, err := collection.Load(cfg.CollectionPath)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	numDocs := coll.NumDocs()
	if numDocs < 1 {
		return fmt.Errorf("pipeline: collection at %s is empty", cfg.CollectionPath)
	}

	// --- Sampler ---
	var sampled *sampler.Result
	sampleStart := time.Now()
	err = logger.LogStage("sampler", map[string]interface{}{"num_docs": numDocs}, func() error {
		var serr error
		sampled, serr = sampler.Sample(ctx, coll, numDocs, enc, cfg.RandomSeed)
		return serr
	})
	if err != nil {
		return fmt.Errorf("pipeline: sampler: %w", err)
	}
	metrics.RecordSample(sampled.Train.Cols()+sampled.HeldOut.Cols(), time.Since(sampleStart))

	// --- Planner ---
	var plan *planner.Plan
	err = logger.LogStage("planner", nil, func() error {
		var perr error
		// Ns is the passage sample size (spec §4.1/§4.2), not the embedding
		// count sampled.Train/HeldOut hold — using the latter here would
		// inflate num_partitions' min() clamp far past the spec's worked
		// examples (and violate the K <= Ns invariant on small collections).
		plan, perr = planner.Compute(numDocs, sampled.AvgDoclenEst, sampler.SampleSize(numDocs), cfg.Chunksize, cfg.Nranks)
		return perr
	})
	if err != nil {
		return fmt.Errorf("pipeline: planner: %w", err)
	}
	logger.Info("plan computed", map[string]interface{}{
		"chunksize":      plan.Chunksize,
		"num_chunks":     plan.NumChunks,
		"num_partitions": plan.NumPartitions,
	})
	if err := plan.WriteJSON(planPath(cfg.IndexPath)); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := cfg.WriteJSON(configPath(cfg.IndexPath)); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// --- Trainer ---
	var result *trainer.Result
	trainStart := time.Now()
	err = logger.LogStage("trainer", map[string]interface{}{"num_partitions": plan.NumPartitions}, func() error {
		var terr error
		result, terr = trainer.Train(sampled.Train, sampled.HeldOut, plan.NumPartitions, cfg.NBits, cfg.KmeansNIters, cfg.RandomSeed)
		return terr
	})
	if err != nil {
		return fmt.Errorf("pipeline: trainer: %w", err)
	}
	metrics.RecordTraining("kmeans_and_residual", time.Since(trainStart))
	metrics.RecordKmeansIterations(cfg.KmeansNIters)
	metrics.RecordResidualAvgMagnitude(result.Codec.AvgResidual)

	if err := persistTrainingArtifacts(cfg.IndexPath, result); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	// --- Chunk Encoder ---
	sizes := make([]manifest.ChunkSize, 0, plan.NumChunks)
	for i := 1; i <= plan.NumChunks; i++ {
		passageOffset := 1 + (i-1)*plan.Chunksize
		passageEnd := passageOffset + plan.Chunksize - 1
		if passageEnd > numDocs {
			passageEnd = numDocs
		}
		numPassages := passageEnd - passageOffset + 1

		var res *chunk.Result
		chunkStart := time.Now()
		err = logger.LogStage("chunk_encoder", map[string]interface{}{"chunk_idx": i, "num_passages": numPassages}, func() error {
			var cerr error
			res, cerr = chunk.Encode(ctx, cfg.IndexPath, i, passageOffset, numPassages, coll, enc, result.Centroids, result.Codec, quantization.DotProductDistance)
			return cerr
		})
		if err != nil {
			return fmt.Errorf("pipeline: chunk encoder: %w", err)
		}
		metrics.RecordChunk(time.Since(chunkStart), res.NumEmbeddings)

		sizes = append(sizes, manifest.ChunkSize{ChunkIdx: i, NumEmbeddings: res.NumEmbeddings})
	}

	// --- IVF Builder ---
	var ivfResult *ivfbuild.Result
	ivfStart := time.Now()
	err = logger.LogStage("ivf_builder", nil, func() error {
		var ierr error
		ivfResult, ierr = ivfbuild.Build(cfg.IndexPath, plan.NumChunks, plan.NumPartitions)
		if ierr != nil {
			return ierr
		}
		return ivfResult.Persist(cfg.IndexPath)
	})
	if err != nil {
		return fmt.Errorf("pipeline: ivf builder: %w", err)
	}
	metrics.RecordIVFBuild(time.Since(ivfStart), ivfResult.Lengths)

	// --- Manifest Writer ---
	var check *manifest.CheckResult
	err = logger.LogStage("manifest_writer", nil, func() error {
		if merr := manifest.RecomputeOffsets(cfg.IndexPath, sizes); merr != nil {
			return merr
		}
		var cerr error
		check, cerr = manifest.Check(cfg.IndexPath, plan.NumChunks)
		return cerr
	})
	if err != nil {
		return fmt.Errorf("pipeline: manifest: %w", err)
	}
	metrics.RecordManifestCheck(len(check.Missing))
	if !check.OK {
		return fmt.Errorf("pipeline: manifest check found missing files: %v", check.Missing)
	}

	logger.Info("build complete", map[string]interface{}{"index_path": cfg.IndexPath})
	return nil
}

// Verify runs only the manifest existence check against an already-built
// index directory, taking the chunk count from the index's plan.json.
func Verify(indexPath string) (*manifest.CheckResult, error) {
	p, err := planner.ReadJSON(planPath(indexPath))
	if err != nil {
		return nil, fmt.Errorf("pipeline: verify: %w", err)
	}
	return manifest.Check(indexPath, p.NumChunks)
}

func persistTrainingArtifacts(indexPath string, result *trainer.Result) error {
	centroids := result.Centroids
	if err := storage.WriteFloat32(centroidsPath(indexPath), []int{centroids.Rows(), centroids.Cols()}, centroids.Data()); err != nil {
		return fmt.Errorf("write centroids: %w", err)
	}

	codec := result.Codec
	if err := storage.WriteFloat32(bucketCutoffsPath(indexPath), []int{len(codec.BucketCutoffs)}, codec.BucketCutoffs); err != nil {
		return fmt.Errorf("write bucket_cutoffs: %w", err)
	}
	if err := storage.WriteFloat32(bucketWeightsPath(indexPath), []int{len(codec.BucketWeights)}, codec.BucketWeights); err != nil {
		return fmt.Errorf("write bucket_weights: %w", err)
	}
	if err := storage.WriteFloat32(avgResidualPath(indexPath), []int{1}, []float32{codec.AvgResidual}); err != nil {
		return fmt.Errorf("write avg_residual: %w", err)
	}

	return nil
}

func configPath(indexPath string) string        { return filepath.Join(indexPath, "config.json") }
func planPath(indexPath string) string          { return filepath.Join(indexPath, "plan.json") }
func centroidsPath(indexPath string) string     { return filepath.Join(indexPath, "centroids") }
func bucketCutoffsPath(indexPath string) string { return filepath.Join(indexPath, "bucket_cutoffs") }
func bucketWeightsPath(indexPath string) string { return filepath.Join(indexPath, "bucket_weights") }
func avgResidualPath(indexPath string) string   { return filepath.Join(indexPath, "avg_residual") }
