package kgraph

import (
	"log/slog"
	"time"

	"github.com/arborgraph/kgraph/pkg/index"
	"github.com/arborgraph/kgraph/pkg/memorymgr"
	"github.com/arborgraph/kgraph/pkg/metrics"
	"github.com/arborgraph/kgraph/pkg/trace"
)

// Config is the closed configuration set for NewEngine, mirroring the
// teacher's single-struct Config/New(cfg) shape rather than a functional
// options API.
type Config struct {
	// MaxNodes and MaxEdgesPerNode bound the underlying graph.Store; zero
	// means unlimited, matching graph.DefaultConfig.
	MaxNodes        int
	MaxEdgesPerNode int

	// VectorMetric selects the vector index's similarity measure.
	VectorMetric index.Metric

	// FuzzyThreshold is the entity resolver's minimum embedding-similarity
	// confidence for a name-less match (default 0.75).
	FuzzyThreshold float64

	// Memory bounds the LRU memory manager. Zero MaxMemoryNodes disables
	// eviction (GetNodesToEvict always returns nil); recency and names are
	// still tracked.
	Memory memorymgr.Config

	// PersistenceDir, if non-empty, enables the JSONL + sqlite ledger
	// persistence boundary rooted at this directory. Empty disables
	// persistence; the engine then holds only the in-memory working set.
	PersistenceDir string

	// SyncInterval sets the background sync loop's cadence when
	// PersistenceDir is set. Zero defaults to 30s. A manual Sync is always
	// available regardless of this interval.
	SyncInterval time.Duration

	// Collector records operation/stage/error metrics. Defaults to a
	// no-op collector when nil, matching the teacher's optional
	// metricsCollector field.
	Collector metrics.Collector

	// TraceExporter records per-operation traces. Defaults to a no-op
	// exporter when nil.
	TraceExporter trace.Exporter

	// Logger is the structured logger injected through every engine
	// operation. Defaults to a text-handler logger writing to stderr when nil.
	Logger *slog.Logger
}
