package index

import (
	"strings"
	"sync"

	"github.com/arborgraph/kgraph/pkg/graph"
)

// Set is the unified index façade: label, property, text, vector, and
// pattern indices behind one API. A Set is kept in sync with a graph.Store
// by registering Listener as a graph.ChangeListener — the store is
// responsible for invoking it on every mutation; indices never poll the
// store or hold back-references into it.
type Set struct {
	Label    *LabelIndex
	Property *PropertyIndex
	Text     *TextIndex
	Vector   *VectorIndex
	Pattern  *PatternIndex

	mu      sync.RWMutex
	idTypes map[string]string // id -> type, so RemoveNode can clean up the label index
}

// NewSet creates an empty index set scored with the given vector metric.
func NewSet(vectorMetric Metric) *Set {
	return &Set{
		Label:    NewLabelIndex(),
		Property: NewPropertyIndex(),
		Text:     NewTextIndex(),
		Vector:   NewVectorIndex(vectorMetric),
		Pattern:  NewPatternIndex(),
		idTypes:  make(map[string]string),
	}
}

// Listener is a graph.ChangeListener that keeps this Set in sync with a
// graph.Store's mutations. Typical wiring:
//
//	set := index.NewSet(index.MetricCosine)
//	store.RegisterChangeListener(set.Listener)
func (s *Set) Listener(event graph.ChangeEvent) {
	switch event.Kind {
	case graph.ChangeNodeAdded:
		s.AddNode(event.Node)
	case graph.ChangeNodeRemoved:
		s.RemoveNode(event.Node.ID)
	case graph.ChangeCleared:
		fresh := NewSet(s.Vector.metric)
		s.Label, s.Property, s.Text, s.Vector, s.Pattern = fresh.Label, fresh.Property, fresh.Text, fresh.Vector, fresh.Pattern
		s.mu.Lock()
		s.idTypes = make(map[string]string)
		s.mu.Unlock()
	}
}

// AddNode indexes node across label, property, text, and (if present)
// vector indices.
func (s *Set) AddNode(node *graph.Node) {
	s.Label.Add(node.ID, node.Type)
	s.Property.Add(node.ID, node.Properties)
	s.Text.Add(node.ID, indexableText(node))
	if len(node.Embedding) > 0 {
		_ = s.Vector.Add(node.ID, node.Embedding)
	}

	s.mu.Lock()
	s.idTypes[node.ID] = node.Type
	s.mu.Unlock()
}

// RemoveNode drops id from every index.
func (s *Set) RemoveNode(id string) {
	s.mu.Lock()
	typ, ok := s.idTypes[id]
	delete(s.idTypes, id)
	s.mu.Unlock()

	if ok {
		s.Label.Remove(id, typ)
	}
	s.Property.Remove(id)
	s.Text.Remove(id)
	s.Vector.Remove(id)
}

func indexableText(node *graph.Node) string {
	var b strings.Builder
	b.WriteString(node.Type)
	for _, key := range node.Properties.SortedKeys() {
		b.WriteByte(' ')
		b.WriteString(node.Properties[key].String())
	}
	return b.String()
}

// QueryByLabel returns every id tagged with typ.
func (s *Set) QueryByLabel(typ string) []string {
	return s.Label.Query(typ)
}

// QueryByProperty returns ids satisfying op against value for propName,
// optionally narrowed to a node type: (typeMatches || typeFilterAbsent) &&
// valueMatches. Passing an empty typeFilter means no type narrowing.
func (s *Set) QueryByProperty(propName string, op Operator, value graph.Value, typeFilter string) ([]string, error) {
	valueMatches, err := s.Property.Query(propName, op, value)
	if err != nil {
		return nil, err
	}
	if typeFilter == "" {
		return valueMatches, nil
	}

	typeSet := make(map[string]struct{})
	for _, id := range s.Label.Query(typeFilter) {
		typeSet[id] = struct{}{}
	}

	var out []string
	for _, id := range valueMatches {
		if _, ok := typeSet[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// QueryByText returns ids whose indexed text contains term exactly.
func (s *Set) QueryByText(term string) []string {
	return s.Text.Query(term)
}

// QueryByTextFuzzy returns ids whose indexed text has Jaccard similarity to
// text of at least threshold.
func (s *Set) QueryByTextFuzzy(text string, threshold float64) []string {
	return s.Text.FuzzyQuery(text, threshold)
}

// QueryByVector returns up to topK vector matches scoring at least
// threshold against probe.
func (s *Set) QueryByVector(probe []float32, topK int, threshold float64) ([]VectorMatch, error) {
	return s.Vector.Query(probe, topK, threshold)
}

// QueryByPattern returns ids of stored patterns matched by query.
func (s *Set) QueryByPattern(query Pattern) []string {
	return s.Pattern.Query(query)
}

// Stats summarizes every index's size, for diagnostics.
type Stats struct {
	LabelTypes     int
	LabelEntries   int
	PropertyNames  int
	PropertyValues int
	TextTokens     int
	TextDocs       int
	VectorDim      int
	VectorCount    int
	PatternCount   int
}

// StatsSnapshot returns a snapshot of every index's size.
func (s *Set) StatsSnapshot() Stats {
	labelTypes, labelEntries := s.Label.Stats()
	propNames, propValues := s.Property.Stats()
	tokens, docs := s.Text.Stats()
	dim, count := s.Vector.Stats()
	return Stats{
		LabelTypes:     labelTypes,
		LabelEntries:   labelEntries,
		PropertyNames:  propNames,
		PropertyValues: propValues,
		TextTokens:     tokens,
		TextDocs:       docs,
		VectorDim:      dim,
		VectorCount:    count,
		PatternCount:   s.Pattern.Stats(),
	}
}
