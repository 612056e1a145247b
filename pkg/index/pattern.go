package index

import (
	"sort"
	"sync"
)

// Pattern is a small typed graph template: the set of node types and edge
// types it involves. It stores no variables and no edge directions. Matching
// is structural, by type-set containment, not by concrete node identity.
type Pattern struct {
	ID        string
	NodeTypes []string
	EdgeTypes []string
}

// PatternIndex stores patterns keyed for retrieval by every node/edge type
// they involve, following the same id-keyed secondary-index shape as the
// label and property indices.
type PatternIndex struct {
	mu sync.RWMutex

	patterns map[string]Pattern
	byType   map[string]map[string]struct{} // type -> pattern ids mentioning it
}

// NewPatternIndex creates an empty pattern index.
func NewPatternIndex() *PatternIndex {
	return &PatternIndex{
		patterns: make(map[string]Pattern),
		byType:   make(map[string]map[string]struct{}),
	}
}

// Add stores pattern, indexing it under every node and edge type it names.
func (p *PatternIndex) Add(pattern Pattern) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(pattern.ID)
	p.patterns[pattern.ID] = pattern
	for _, t := range append(append([]string{}, pattern.NodeTypes...), pattern.EdgeTypes...) {
		if p.byType[t] == nil {
			p.byType[t] = make(map[string]struct{})
		}
		p.byType[t][pattern.ID] = struct{}{}
	}
}

// Remove drops the pattern with the given id.
func (p *PatternIndex) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

func (p *PatternIndex) removeLocked(id string) {
	pattern, ok := p.patterns[id]
	if !ok {
		return
	}
	for _, t := range append(append([]string{}, pattern.NodeTypes...), pattern.EdgeTypes...) {
		if set, ok := p.byType[t]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(p.byType, t)
			}
		}
	}
	delete(p.patterns, id)
}

// Query tests query against every stored pattern and returns the ids of
// patterns that match: query's node-type set must be a subset of the
// stored pattern's node-type set, and likewise for edge types — the query
// is the specific instance being tested against broader stored templates.
func (p *PatternIndex) Query(query Pattern) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for id, stored := range p.patterns {
		if isSubset(query.NodeTypes, stored.NodeTypes) && isSubset(query.EdgeTypes, stored.EdgeTypes) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func isSubset(subset, superset []string) bool {
	supSet := make(map[string]struct{}, len(superset))
	for _, t := range superset {
		supSet[t] = struct{}{}
	}
	for _, t := range subset {
		if _, ok := supSet[t]; !ok {
			return false
		}
	}
	return true
}

// Stats returns the number of stored patterns.
func (p *PatternIndex) Stats() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.patterns)
}
