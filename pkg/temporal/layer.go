package temporal

import (
	"sort"
	"sync"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/google/uuid"
)

// Config bounds the temporal layer's housekeeping behavior.
type Config struct {
	// MaxInvalidatedAge bounds how long an invalidated (retained-for-history)
	// edge is kept before Cleanup drops it. Zero means never cleaned up.
	MaxInvalidatedAge time.Duration
}

// Layer wraps a *graph.Store to add validity-interval semantics without
// changing the store's base contract. It owns only temporal metadata keyed
// by edge id; the store remains the sole owner of node and edge data, per
// the ownership rule in §3.
type Layer struct {
	mu sync.RWMutex

	store  *graph.Store
	config Config

	meta map[string]*Edge // every temporal edge ever created, including invalidated ones

	byValidFromDay  map[string]map[string]struct{}
	byValidUntilDay map[string]map[string]struct{}
	byType          map[Type]map[string]struct{}
}

// NewLayer wraps store with temporal semantics, registering itself as a
// change listener so a store Clear() also resets the layer's own temporal
// metadata table (see Listener).
func NewLayer(store *graph.Store, config Config) *Layer {
	l := &Layer{
		store:           store,
		config:          config,
		meta:            make(map[string]*Edge),
		byValidFromDay:  make(map[string]map[string]struct{}),
		byValidUntilDay: make(map[string]map[string]struct{}),
		byType:          make(map[Type]map[string]struct{}),
	}
	store.RegisterChangeListener(l.Listener)
	return l
}

// Listener is a graph.ChangeListener that resets the layer's temporal
// metadata table when the underlying store is cleared. Node/edge add and
// remove events are ignored here: temporal metadata is created and
// invalidated exclusively through AddTemporalRelationship/Invalidate, not
// by observing arbitrary store mutations.
func (l *Layer) Listener(event graph.ChangeEvent) {
	if event.Kind != graph.ChangeCleared {
		return
	}
	l.mu.Lock()
	l.meta = make(map[string]*Edge)
	l.byValidFromDay = make(map[string]map[string]struct{})
	l.byValidUntilDay = make(map[string]map[string]struct{})
	l.byType = make(map[Type]map[string]struct{})
	l.mu.Unlock()
}

// AddOptions configures AddTemporalRelationship.
type AddOptions struct {
	// ValidFrom is the instant the relationship becomes active. Required.
	ValidFrom time.Time
	// ValidUntil optionally closes the validity window up front. Absence
	// means open-ended, subject to the type's default window below.
	ValidUntil *time.Time
	// Temporal optionally overrides the heuristic classification.
	Temporal Type
	// AsOf is the instant used to decide whether the new edge is "currently
	// active" and which existing edges are active conflict candidates;
	// conflicting edges are closed as of ValidFrom, not AsOf. Defaults
	// to ValidFrom when zero, which makes a freshly-inserted edge active by
	// construction unless the caller supplies a ValidUntil in the past.
	AsOf time.Time
}

// AddTemporalRelationship classifies the edge's temporalType, fills a
// default validity window by class when ValidUntil is absent, runs conflict
// detection against existing active edges sharing source, invalidates
// conflicting ones as of the new edge's validFrom, and finally inserts the
// edge into the base graph iff it is active as of AsOf. Per §4.5.
func (l *Layer) AddTemporalRelationship(edge *graph.Edge, opts AddOptions) (*Edge, error) {
	if edge == nil {
		return nil, &graph.InvalidArgumentError{Field: "edge", Reason: "nil edge"}
	}
	if opts.ValidFrom.IsZero() {
		return nil, &graph.InvalidArgumentError{Field: "validFrom", Reason: "required"}
	}
	if opts.ValidUntil != nil && opts.ValidUntil.Before(opts.ValidFrom) {
		return nil, &graph.InvalidArgumentError{Field: "validUntil", Reason: "must not precede validFrom"}
	}

	temporalType := opts.Temporal
	if temporalType == "" {
		temporalType = inferTemporalType(edge.Type)
	}

	validUntil := opts.ValidUntil
	if validUntil == nil {
		deadline := opts.ValidFrom.Add(temporalType.defaultWindow())
		validUntil = &deadline
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = opts.ValidFrom
	}

	if edge.ID == "" {
		edge.ID = uuid.New().String()
	}

	l.mu.Lock()
	conflicts := l.activeBetweenLocked(edge.SourceID, asOf)
	for _, existing := range conflicts {
		reason, conflicting := conflictReason(existing.Type, edge.Type)
		if !conflicting {
			continue
		}
		l.invalidateLocked(existing, opts.ValidFrom, reason)
	}

	tEdge := &Edge{
		ID:         edge.ID,
		SourceID:   edge.SourceID,
		TargetID:   edge.TargetID,
		Type:       edge.Type,
		ValidFrom:  opts.ValidFrom,
		ValidUntil: validUntil,
		Temporal:   temporalType,
	}
	l.indexLocked(tEdge)
	l.meta[tEdge.ID] = tEdge
	active := tEdge.IsActiveAt(asOf)
	l.mu.Unlock()

	if active {
		if _, err := l.store.AddEdge(edge); err != nil {
			return nil, err
		}
	}

	return cloneEdge(tEdge), nil
}

// activeBetweenLocked returns temporal edges sharing sourceID that are
// active at t, candidates for conflictReason to judge. The target is
// deliberately not matched here: a supersession (§8 scenario 2) is exactly
// the case where the target changes (works_at(Alice, Google) superseded by
// works_at(Alice, Meta)) while the source and relation type stay fixed.
// conflictReason's same-type/mutually-exclusive-pair test is what actually
// decides whether two edges sharing a source conflict. Must be called with
// l.mu held.
func (l *Layer) activeBetweenLocked(sourceID string, t time.Time) []*Edge {
	var out []*Edge
	for _, e := range l.meta {
		if e.SourceID == sourceID && e.IsActiveAt(t) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// conflictReason reports whether two relation types conflict per §4.5's
// predicate (same type, or a statically declared mutually-exclusive pair)
// and which reason tag applies.
func conflictReason(existingType, newType string) (InvalidationReason, bool) {
	if existingType == newType {
		return ReasonSuperseded, true
	}
	if declaredMutuallyExclusive(existingType, newType) {
		return ReasonContradicted, true
	}
	return "", false
}

// invalidateLocked closes e's validity window as of instant t, tagged with
// reason, and removes it from the base graph (retaining it in the temporal
// table for historical queries). Monotonic: an edge already closed at or
// before t is left unchanged; otherwise its validUntil only moves earlier.
// Must be called with l.mu held.
func (l *Layer) invalidateLocked(e *Edge, t time.Time, reason InvalidationReason) {
	if e.ValidUntil != nil && !e.ValidUntil.After(t) {
		return // already closed at or before t; monotonic, never reopened
	}

	if e.ValidUntil != nil {
		l.unindexValidUntilLocked(e)
	}
	closed := t
	e.ValidUntil = &closed
	e.Reason = reason
	l.indexValidUntilLocked(e)

	_ = l.store.RemoveEdge(e.ID) // already absent is fine; ignore NotFound
}

// Invalidate manually closes edge id's validity window as of t, tagged with
// the given reason, for callers outside AddTemporalRelationship's automatic
// conflict detection (e.g. "context_changed" corrections).
func (l *Layer) Invalidate(edgeID string, t time.Time, reason InvalidationReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.meta[edgeID]
	if !ok {
		return &graph.NotFoundError{Kind: "edge", ID: edgeID}
	}
	l.invalidateLocked(e, t, reason)
	return nil
}

func (l *Layer) indexLocked(e *Edge) {
	addToSet(l.byValidFromDay, dayKey(e.ValidFrom), e.ID)
	if e.ValidUntil != nil {
		addToSet(l.byValidUntilDay, dayKey(*e.ValidUntil), e.ID)
	}
	addToSet2(l.byType, e.Temporal, e.ID)
}

func (l *Layer) indexValidUntilLocked(e *Edge) {
	if e.ValidUntil != nil {
		addToSet(l.byValidUntilDay, dayKey(*e.ValidUntil), e.ID)
	}
}

func (l *Layer) unindexValidUntilLocked(e *Edge) {
	if e.ValidUntil != nil {
		removeFromSet(l.byValidUntilDay, dayKey(*e.ValidUntil), e.ID)
	}
}

func addToSet(m map[string]map[string]struct{}, key, id string) {
	if m[key] == nil {
		m[key] = make(map[string]struct{})
	}
	m[key][id] = struct{}{}
}

func removeFromSet(m map[string]map[string]struct{}, key, id string) {
	if set, ok := m[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

func addToSet2(m map[Type]map[string]struct{}, key Type, id string) {
	if m[key] == nil {
		m[key] = make(map[string]struct{})
	}
	m[key][id] = struct{}{}
}

// GetGraphStateAt returns the edges active at instant t and every node
// referenced by those edges, reconstructing the graph as it stood at t —
// including edges that have since been invalidated or not yet inserted.
func (l *Layer) GetGraphStateAt(t time.Time) ([]*Edge, []*graph.Node, error) {
	l.mu.RLock()
	var active []*Edge
	nodeIDs := make(map[string]struct{})
	for _, e := range l.meta {
		if e.IsActiveAt(t) {
			active = append(active, cloneEdge(e))
			nodeIDs[e.SourceID] = struct{}{}
			nodeIDs[e.TargetID] = struct{}{}
		}
	}
	l.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	nodes := make([]*graph.Node, 0, len(nodeIDs))
	for id := range nodeIDs {
		n, err := l.store.GetNode(id)
		if err != nil {
			continue // node may itself have been removed since; skip, don't fail the slice
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return active, nodes, nil
}

// ByValidFromDay returns the ids of temporal edges whose validFrom falls on
// the UTC calendar day of t.
func (l *Layer) ByValidFromDay(t time.Time) []string {
	return sortedKeys(l.byValidFromDay, dayKey(t))
}

// ByValidUntilDay returns the ids of temporal edges whose validUntil falls
// on the UTC calendar day of t.
func (l *Layer) ByValidUntilDay(t time.Time) []string {
	return sortedKeys(l.byValidUntilDay, dayKey(t))
}

// ByTemporalType returns the ids of every temporal edge of the given type.
func (l *Layer) ByTemporalType(typ Type) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set := l.byType[typ]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]map[string]struct{}, key string) []string {
	set := m[key]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GetTemporalEdge returns a copy of the temporal metadata for id, including
// invalidated (historical) edges.
func (l *Layer) GetTemporalEdge(id string) (*Edge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.meta[id]
	if !ok {
		return nil, &graph.NotFoundError{Kind: "edge", ID: id}
	}
	return cloneEdge(e), nil
}

// Cleanup drops the temporal metadata of edges, invalidated or expired, whose
// validUntil lies at least Config.MaxInvalidatedAge before now. Active edges
// are never dropped.
// Returns the number of edges removed.
func (l *Layer) Cleanup(now time.Time) int {
	if l.config.MaxInvalidatedAge <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.meta {
		if e.ValidUntil == nil {
			continue
		}
		if now.Sub(*e.ValidUntil) < l.config.MaxInvalidatedAge {
			continue
		}
		removeFromSet(l.byValidFromDay, dayKey(e.ValidFrom), id)
		removeFromSet(l.byValidUntilDay, dayKey(*e.ValidUntil), id)
		if set, ok := l.byType[e.Temporal]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(l.byType, e.Temporal)
			}
		}
		delete(l.meta, id)
		removed++
	}
	return removed
}

func cloneEdge(e *Edge) *Edge {
	out := *e
	if e.ValidUntil != nil {
		until := *e.ValidUntil
		out.ValidUntil = &until
	}
	return &out
}

// The following delegate to the base graph store, giving traversal
// polymorphism over graph implementations (§9 design note): any code built
// against traversal.GraphView runs unmodified over a *Layer, gaining
// time-aware neighbor lookups since invalidated edges have already been
// removed from the base store by invalidateLocked. An edge whose validity
// window simply runs out stays in the base store.

// GetNode delegates to the wrapped store.
func (l *Layer) GetNode(id string) (*graph.Node, error) { return l.store.GetNode(id) }

// GetNeighbors delegates to the wrapped store.
func (l *Layer) GetNeighbors(id string, relTypes []string) ([]graph.NeighborTriple, error) {
	return l.store.GetNeighbors(id, relTypes)
}

// GetOutgoing delegates to the wrapped store.
func (l *Layer) GetOutgoing(id string, relTypes []string) ([]graph.NeighborTriple, error) {
	return l.store.GetOutgoing(id, relTypes)
}

// GetIncoming delegates to the wrapped store.
func (l *Layer) GetIncoming(id string, relTypes []string) ([]graph.NeighborTriple, error) {
	return l.store.GetIncoming(id, relTypes)
}
