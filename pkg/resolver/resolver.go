// Package resolver matches an incoming extraction record against an
// existing graph node, or decides none exists. It generalizes the teacher's
// FindNodeByName/FindNodesByName case-insensitive, ambiguity-aware name
// lookup and the Entity{Name,Type,Description} extraction-boundary shape,
// stripped of the LLM-prompt machinery since extraction itself is out of
// scope for this module — callers hand resolver an already-extracted
// EntityRecord.
package resolver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/index"
)

// ErrAmbiguousNode is returned when a normalized-name lookup matches more
// than one node of the requested type — the caller must disambiguate
// rather than have the resolver guess.
var ErrAmbiguousNode = errors.New("resolver: ambiguous node name")

// EntityRecord is the extraction-boundary shape: what an external entity
// extractor hands the resolver. Nothing in this module constructs these
// from text.
type EntityRecord struct {
	ID         string
	Type       string
	Name       string
	Properties graph.PropertyMap
	Embedding  []float32
}

// RelationshipRecord is the extraction-boundary shape for a relation
// between two already-resolved (or about-to-be-created) entities.
type RelationshipRecord struct {
	ID         string
	Source     string
	Target     string
	Type       string
	Confidence float64
	Properties graph.PropertyMap
}

// MatchMethod names which cascade step produced a Match.
type MatchMethod string

const (
	MatchByID        MatchMethod = "id"
	MatchByName      MatchMethod = "name"
	MatchByEmbedding MatchMethod = "embedding"
)

// Match is a successful resolution: the existing node and the confidence
// and method that produced it.
type Match struct {
	Node       *graph.Node
	Confidence float64
	Method     MatchMethod
}

// Resolver matches incoming EntityRecords against existing nodes via the
// three-step cascade in §4.7: exact id hit (0.95), normalized-name hit
// (0.9), embedding nearest-neighbor (confidence = cosine similarity, if at
// least FuzzyThreshold). It maintains its own normalized-name -> ids index,
// kept in sync via graph.ChangeListener, the same wiring convention
// index.Set uses to stay in sync with the store.
type Resolver struct {
	mu sync.RWMutex

	store          *graph.Store
	indices        *index.Set
	fuzzyThreshold float64

	byName map[string]map[string]struct{} // normalized name -> node ids
	names  map[string]string              // node id -> its last-indexed normalized name, for removal
}

// New creates a resolver over store and indices (used for the embedding
// nearest-neighbor step), scoring embedding matches against fuzzyThreshold.
func New(store *graph.Store, indices *index.Set, fuzzyThreshold float64) *Resolver {
	r := &Resolver{
		store:          store,
		indices:        indices,
		fuzzyThreshold: fuzzyThreshold,
		byName:         make(map[string]map[string]struct{}),
		names:          make(map[string]string),
	}
	store.RegisterChangeListener(r.Listener)
	return r
}

// NormalizeName lowercases, trims, and collapses whitespace, generalizing
// the teacher's SQL `COLLATE NOCASE` case-insensitive name comparison to an
// explicit Go-side normalization, since the in-memory store has no
// collation engine.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// Listener is a graph.ChangeListener that keeps the name index in sync with
// the store's node mutations.
func (r *Resolver) Listener(event graph.ChangeEvent) {
	switch event.Kind {
	case graph.ChangeNodeAdded:
		r.indexNode(event.Node)
	case graph.ChangeNodeRemoved:
		r.unindexNode(event.Node.ID)
	case graph.ChangeCleared:
		r.mu.Lock()
		r.byName = make(map[string]map[string]struct{})
		r.names = make(map[string]string)
		r.mu.Unlock()
	}
}

func (r *Resolver) indexNode(node *graph.Node) {
	nameVal, ok := node.Properties["name"]
	if !ok {
		return
	}
	name, ok := nameVal.AsString()
	if !ok || name == "" {
		return
	}
	normalized := NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName[normalized] == nil {
		r.byName[normalized] = make(map[string]struct{})
	}
	r.byName[normalized][node.ID] = struct{}{}
	r.names[node.ID] = normalized
}

func (r *Resolver) unindexNode(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized, ok := r.names[id]
	if !ok {
		return
	}
	delete(r.names, id)
	if set, ok := r.byName[normalized]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byName, normalized)
		}
	}
}

// Resolve runs the three-step match cascade against record and returns the
// first step that succeeds, or (nil, nil) if none match — "no match" is not
// an error.
func (r *Resolver) Resolve(record EntityRecord) (*Match, error) {
	if record.ID != "" {
		node, err := r.store.GetNode(record.ID)
		if err == nil && node.Type == record.Type {
			return &Match{Node: node, Confidence: 0.95, Method: MatchByID}, nil
		}
	}

	if record.Name != "" {
		match, err := r.resolveByName(record.Name, record.Type)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	if len(record.Embedding) > 0 {
		match, err := r.resolveByEmbedding(record.Embedding, record.Type)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	return nil, nil
}

func (r *Resolver) resolveByName(name, typ string) (*Match, error) {
	normalized := NormalizeName(name)

	r.mu.RLock()
	ids := r.byName[normalized]
	candidates := make([]string, 0, len(ids))
	for id := range ids {
		candidates = append(candidates, id)
	}
	r.mu.RUnlock()

	var matched []*graph.Node
	for _, id := range candidates {
		node, err := r.store.GetNode(id)
		if err != nil {
			continue // stale entry, node since removed
		}
		if node.Type == typ {
			matched = append(matched, node)
		}
	}

	switch len(matched) {
	case 0:
		return nil, nil
	case 1:
		return &Match{Node: matched[0], Confidence: 0.9, Method: MatchByName}, nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d nodes of type %q", ErrAmbiguousNode, name, len(matched), typ)
	}
}

func (r *Resolver) resolveByEmbedding(embedding []float32, typ string) (*Match, error) {
	matches, err := r.indices.QueryByVector(embedding, 10, r.fuzzyThreshold)
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		node, err := r.store.GetNode(m.ID)
		if err != nil {
			continue
		}
		if node.Type != typ {
			continue
		}
		return &Match{Node: node, Confidence: m.Score, Method: MatchByEmbedding}, nil
	}
	return nil, nil
}

// MatchesByName returns every node whose normalized name matches name,
// regardless of type, each scored at the standard name-match confidence
// (0.9). Unlike Resolve, this never errors on ambiguity — it is used by the
// query processor, which wants every candidate rather than a single
// disambiguated entity.
func (r *Resolver) MatchesByName(name string) []Match {
	normalized := NormalizeName(name)

	r.mu.RLock()
	ids := r.byName[normalized]
	candidates := make([]string, 0, len(ids))
	for id := range ids {
		candidates = append(candidates, id)
	}
	r.mu.RUnlock()

	var out []Match
	for _, id := range candidates {
		node, err := r.store.GetNode(id)
		if err != nil {
			continue
		}
		out = append(out, Match{Node: node, Confidence: 0.9, Method: MatchByName})
	}
	return out
}

// MergeEntityProperties unions existing and updates, with updates winning on
// key collision, and stamps lastUpdated/updatedBy audit fields per §4.7.
func MergeEntityProperties(existing, updates graph.PropertyMap, now time.Time, updatedBy string) graph.PropertyMap {
	merged := make(graph.PropertyMap, len(existing)+len(updates)+2)
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	merged["lastUpdated"] = graph.StringValue(now.UTC().Format(time.RFC3339))
	merged["updatedBy"] = graph.StringValue(updatedBy)
	return merged
}
