// Package query implements the hybrid query processor: it fuses structural
// (name/property) signals, resolver confidence, and vector similarity into
// one ranked node set. It generalizes pkg/search/hybrid.go's
// additive-score-then-sort-then-truncate idiom — accumulate per-node scores
// in a map, sort, truncate — to the richer multi-signal formula §4.8
// requires.
package query

import (
	"sort"
	"strings"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/index"
	"github.com/arborgraph/kgraph/pkg/resolver"
)

// relevanceThreshold is the floor rankResults applies before sorting, per
// §4.8.
const relevanceThreshold = 0.05

// Signals holds the per-node evidence CalculateRelevanceScore combines.
type Signals struct {
	ExactName          bool
	PartialName        bool
	ResolverConfidence float64
	PropertyHits       int
	HasVector          bool
	VectorSimilarity   float64
}

// CalculateRelevanceScore implements §4.8's formula exactly: exact-name
// 1.0, partial-name 0.7, resolver-confidence×0.5, each string-property hit
// 0.2, vector-similarity×1.2 (when applicable), summed and capped at 1.0.
func CalculateRelevanceScore(s Signals) float64 {
	score := 0.0
	if s.ExactName {
		score += 1.0
	}
	if s.PartialName {
		score += 0.7
	}
	score += s.ResolverConfidence * 0.5
	score += float64(s.PropertyHits) * 0.2
	if s.HasVector {
		score += s.VectorSimilarity * 1.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ScoredNode is one ranked result: the node, its composite score, and the
// signals that produced it (useful for callers that want to explain a
// ranking, e.g. a trace span).
type ScoredNode struct {
	Node    *graph.Node
	Score   float64
	Signals Signals
}

// Processor composes the graph store, index set, and entity resolver into
// ranked query results.
type Processor struct {
	store    *graph.Store
	indices  *index.Set
	resolver *resolver.Resolver
}

// New creates a query processor over store, indices, and resolver.
func New(store *graph.Store, indices *index.Set, resolver *resolver.Resolver) *Processor {
	return &Processor{store: store, indices: indices, resolver: resolver}
}

// FindRelevantNodes seeds candidates from (a) resolver-matched nodes by
// name, (b) nodes whose name or any string property substring-contains the
// query text, and (c) — if queryEmbedding is non-empty — nodes whose
// embedding has cosine similarity > 0.3 with it. Every candidate is scored
// via CalculateRelevanceScore and the result is ranked with RankResults.
func (p *Processor) FindRelevantNodes(queryText string, queryEmbedding []float32) ([]ScoredNode, error) {
	candidates := make(map[string]*Signals)

	ensure := func(id string) *Signals {
		s, ok := candidates[id]
		if !ok {
			s = &Signals{}
			candidates[id] = s
		}
		return s
	}

	for _, m := range p.resolver.MatchesByName(queryText) {
		s := ensure(m.Node.ID)
		if m.Confidence > s.ResolverConfidence {
			s.ResolverConfidence = m.Confidence
		}
	}

	normalizedQuery := strings.ToLower(strings.TrimSpace(queryText))
	if normalizedQuery != "" {
		for _, node := range p.store.GetAllNodes() {
			exact, partial, hits := matchNodeText(node, normalizedQuery)
			if !exact && !partial && hits == 0 {
				continue
			}
			s := ensure(node.ID)
			s.ExactName = s.ExactName || exact
			s.PartialName = s.PartialName || partial
			s.PropertyHits += hits
		}
	}

	if len(queryEmbedding) > 0 {
		matches, err := p.indices.QueryByVector(queryEmbedding, 0, 0.3)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			s := ensure(m.ID)
			s.HasVector = true
			if m.Score > s.VectorSimilarity {
				s.VectorSimilarity = m.Score
			}
		}
	}

	var scored []ScoredNode
	for id, s := range candidates {
		node, err := p.store.GetNode(id)
		if err != nil {
			continue // stale candidate; node removed since
		}
		scored = append(scored, ScoredNode{Node: node, Score: CalculateRelevanceScore(*s), Signals: *s})
	}

	return RankResults(scored), nil
}

// matchNodeText reports whether node's name property equals query exactly
// (case-insensitively), whether it merely contains query as a substring,
// and how many of its other string properties contain query as a
// substring.
func matchNodeText(node *graph.Node, normalizedQuery string) (exact, partial bool, propertyHits int) {
	for _, key := range node.Properties.SortedKeys() {
		val, ok := node.Properties[key].AsString()
		if !ok {
			continue
		}
		lower := strings.ToLower(val)
		if key == "name" {
			if lower == normalizedQuery {
				exact = true
			} else if strings.Contains(lower, normalizedQuery) {
				partial = true
			}
			continue
		}
		if strings.Contains(lower, normalizedQuery) {
			propertyHits++
		}
	}
	return exact, partial, propertyHits
}

// RankResults thresholds scored at >= relevanceThreshold and sorts
// descending by score, ties broken by ascending node id for determinism.
func RankResults(scored []ScoredNode) []ScoredNode {
	var out []ScoredNode
	for _, s := range scored {
		if s.Score >= relevanceThreshold {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Node.ID < out[j].Node.ID
		}
		return out[i].Score > out[j].Score
	})
	return out
}
