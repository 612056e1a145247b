// Package index implements the multi-modal secondary index set — label,
// property, text, vector, and pattern indices — plus the unified Set façade
// that a graph.Store keeps in sync via its ChangeListener hook. Indices
// hold only ids; the graph store remains the sole owner of node and edge
// data.
package index

import "github.com/arborgraph/kgraph/pkg/vectorkernel"

// Metric selects the distance/similarity function the vector index scores
// candidates with.
type Metric int

const (
	MetricCosine Metric = iota
	MetricEuclidean
)

// Score computes the raw metric value between two vectors.
func (m Metric) Score(a, b []float32) float64 {
	if m == MetricEuclidean {
		return vectorkernel.EuclideanDistance(a, b)
	}
	return vectorkernel.CosineSimilarity(a, b)
}

// Better reports whether score a ranks ahead of score b under this metric:
// for cosine similarity, higher is better; for euclidean distance, lower is
// better.
func (m Metric) Better(a, b float64) bool {
	if m == MetricEuclidean {
		return a < b
	}
	return a > b
}

// Passes reports whether score clears threshold under this metric's
// direction: cosine similarity must be >= threshold, euclidean distance
// must be <= threshold. This resolves the open question on euclidean
// threshold semantics explicitly rather than leaving it ambiguous.
func (m Metric) Passes(score, threshold float64) bool {
	if m == MetricEuclidean {
		return score <= threshold
	}
	return score >= threshold
}
