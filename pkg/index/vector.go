package index

import (
	"sort"
	"sync"

	"github.com/arborgraph/kgraph/pkg/vectorkernel"
)

// VectorMatch is one scored result from a vector query.
type VectorMatch struct {
	ID    string
	Score float64
}

// VectorIndex maps id to a dense vector of fixed dimension, generalizing
// the in-memory vector store pattern to a configurable metric (cosine
// default, euclidean alternative).
type VectorIndex struct {
	mu        sync.RWMutex
	metric    Metric
	dimension int
	vectors   map[string][]float32
}

// NewVectorIndex creates an empty vector index scored with metric.
func NewVectorIndex(metric Metric) *VectorIndex {
	return &VectorIndex{metric: metric, vectors: make(map[string][]float32)}
}

// Add stores a defensive copy of embedding for id. Returns
// vectorkernel.ErrDimensionMismatch if embedding's dimension differs from
// vectors already stored.
func (v *VectorIndex) Add(id string, embedding []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dimension != 0 && len(embedding) != v.dimension {
		return vectorkernel.ErrDimensionMismatch
	}
	if v.dimension == 0 {
		v.dimension = len(embedding)
	}

	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	v.vectors[id] = cp
	return nil
}

// Remove drops id's vector.
func (v *VectorIndex) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vectors, id)
}

// Query returns up to topK matches scoring at least threshold against
// probe (per the index's metric direction), sorted best-first with ties
// broken by ascending id for deterministic ordering.
func (v *VectorIndex) Query(probe []float32, topK int, threshold float64) ([]VectorMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var matches []VectorMatch
	for id, vec := range v.vectors {
		if len(vec) != len(probe) {
			continue
		}
		score := v.metric.Score(probe, vec)
		if v.metric.Passes(score, threshold) {
			matches = append(matches, VectorMatch{ID: id, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return v.metric.Better(matches[i].Score, matches[j].Score)
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Stats returns the dimension (0 if empty) and the number of indexed
// vectors.
func (v *VectorIndex) Stats() (dimension int, count int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimension, len(v.vectors)
}
