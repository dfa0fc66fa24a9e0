package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exported by an indexing run. Each
// pipeline stage records into the groups relevant to it; the pipeline
// orchestrator wires this into the CLI's optional metrics server.
type Metrics struct {
	// Sampler metrics
	SampleEmbeddings prometheus.Gauge
	SampleDuration   prometheus.Histogram

	// Trainer metrics
	KmeansIterations       prometheus.Gauge
	TrainingDuration       *prometheus.HistogramVec
	ResidualAvgMagnitude   prometheus.Gauge

	// Chunk encoder metrics
	ChunksWritten       prometheus.Counter
	VectorsEncoded      prometheus.Counter
	ChunkEncodeDuration prometheus.Histogram

	// IVF builder metrics
	IVFBuildDuration prometheus.Histogram
	PartitionSizes   prometheus.Histogram

	// Manifest metrics
	ManifestMissingFiles prometheus.Gauge

	// Encoder client metrics
	EncoderBatchDuration prometheus.Histogram
	EncoderErrors        prometheus.Counter

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

var (
	metricsOnce    sync.Once
	processMetrics *Metrics
)

// NewMetrics returns the indexing pipeline's Prometheus metrics. The first
// call creates them and registers them with the default registry; later
// calls return that same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() { processMetrics = newMetrics() })
	return processMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		SampleEmbeddings: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_sample_embeddings",
				Help: "Number of embeddings drawn into the clustering sample",
			},
		),
		SampleDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "colbertindex_sample_duration_seconds",
				Help:    "Time spent sampling and encoding the training set",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300},
			},
		),

		KmeansIterations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_kmeans_iterations",
				Help: "Number of k-means iterations run during training",
			},
		),
		TrainingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "colbertindex_training_duration_seconds",
				Help:    "Time spent in each training phase",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"phase"},
		),
		ResidualAvgMagnitude: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_residual_avg_magnitude",
				Help: "Mean absolute residual magnitude measured during codec calibration",
			},
		),

		ChunksWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "colbertindex_chunks_written_total",
				Help: "Total number of chunks persisted to the index directory",
			},
		),
		VectorsEncoded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "colbertindex_vectors_encoded_total",
				Help: "Total number of embeddings compressed and written across all chunks",
			},
		),
		ChunkEncodeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "colbertindex_chunk_encode_duration_seconds",
				Help:    "Time spent encoding and persisting a single chunk",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
		),

		IVFBuildDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "colbertindex_ivf_build_duration_seconds",
				Help:    "Time spent building the inverted file",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60},
			},
		),
		PartitionSizes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "colbertindex_ivf_partition_size",
				Help:    "Distribution of per-centroid embedding counts",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),

		ManifestMissingFiles: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_manifest_missing_files",
				Help: "Number of required files missing at the last manifest check",
			},
		),

		EncoderBatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "colbertindex_encoder_batch_duration_seconds",
				Help:    "Latency of a single encoder batch call",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
		),
		EncoderErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "colbertindex_encoder_errors_total",
				Help: "Total number of failed encoder batch calls",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "colbertindex_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),
	}
}

// RecordSample records the sampling stage's output size and duration.
func (m *Metrics) RecordSample(numEmbeddings int, duration time.Duration) {
	m.SampleEmbeddings.Set(float64(numEmbeddings))
	m.SampleDuration.Observe(duration.Seconds())
}

// RecordTraining records one training phase's duration under phase (e.g.
// "kmeans" or "residual_calibration").
func (m *Metrics) RecordTraining(phase string, duration time.Duration) {
	m.TrainingDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordKmeansIterations records how many iterations k-means actually ran.
func (m *Metrics) RecordKmeansIterations(n int) {
	m.KmeansIterations.Set(float64(n))
}

// RecordResidualAvgMagnitude records the codec's avg_residual scalar.
func (m *Metrics) RecordResidualAvgMagnitude(v float32) {
	m.ResidualAvgMagnitude.Set(float64(v))
}

// RecordChunk records one chunk's encode duration and embedding count.
func (m *Metrics) RecordChunk(duration time.Duration, numEmbeddings int) {
	m.ChunksWritten.Inc()
	m.VectorsEncoded.Add(float64(numEmbeddings))
	m.ChunkEncodeDuration.Observe(duration.Seconds())
}

// RecordIVFBuild records the IVF builder's duration and per-partition sizes.
func (m *Metrics) RecordIVFBuild(duration time.Duration, lengths []uint32) {
	m.IVFBuildDuration.Observe(duration.Seconds())
	for _, l := range lengths {
		m.PartitionSizes.Observe(float64(l))
	}
}

// RecordManifestCheck records how many required files were missing.
func (m *Metrics) RecordManifestCheck(missing int) {
	m.ManifestMissingFiles.Set(float64(missing))
}

// RecordEncoderBatch records one encoder RPC's latency and outcome.
func (m *Metrics) RecordEncoderBatch(duration time.Duration, err error) {
	m.EncoderBatchDuration.Observe(duration.Seconds())
	if err != nil {
		m.EncoderErrors.Inc()
	}
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
