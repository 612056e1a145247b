// Package graph implements the RAM-resident knowledge graph store: typed
// nodes and directed, weighted edges held in dual adjacency lists under a
// single RWMutex-guarded struct. There is deliberately no SQL-backed
// implementation here — the working set lives entirely in memory, with
// periodic write-through snapshots handled by a separate persistence
// boundary (see package persistence).
package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config bounds the store's capacity and housekeeping behavior. Zero means
// unbounded for the two capacity fields.
type Config struct {
	MaxNodes        int
	MaxEdgesPerNode int
	HistorySize     int // bounded operation-history ring length; default 500
}

// DefaultConfig returns the zero-capacity (unbounded), default-history
// configuration.
func DefaultConfig() Config {
	return Config{HistorySize: 500}
}

// Store is the exclusive owner of all nodes and edges. Every other
// component (indices, traversal, temporal layer) holds only ids; there are
// no back-pointer cycles into the store's tables.
type Store struct {
	mu sync.RWMutex

	config Config

	nodes map[string]*Node
	edges map[string]*Edge

	// outAdj[nodeID] / inAdj[nodeID] hold edge ids in insertion order, so
	// traversal and tie-breaking by edge-insertion order is deterministic.
	outAdj map[string][]string
	inAdj  map[string][]string

	history     []HistoryEntry
	historyHead int

	listeners []ChangeListener
}

// NewStore creates an empty store with the given configuration.
func NewStore(config Config) *Store {
	if config.HistorySize <= 0 {
		config.HistorySize = 500
	}
	return &Store{
		config: config,
		nodes:  make(map[string]*Node),
		edges:  make(map[string]*Edge),
		outAdj: make(map[string][]string),
		inAdj:  make(map[string][]string),
	}
}

// RegisterChangeListener subscribes l to every future committed mutation.
// Listeners are invoked synchronously, on the mutating goroutine, while the
// store's write lock is held — they must not call back into the store.
func (s *Store) RegisterChangeListener(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(event ChangeEvent) {
	for _, l := range s.listeners {
		l(event)
	}
}

func (s *Store) recordHistory(kind, details string) {
	entry := HistoryEntry{Kind: kind, Timestamp: time.Now(), Details: details}
	if len(s.history) < s.config.HistorySize {
		s.history = append(s.history, entry)
		return
	}
	s.history[s.historyHead] = entry
	s.historyHead = (s.historyHead + 1) % s.config.HistorySize
}

// AddNode inserts node, minting an id if none was supplied. Fails with a
// CapacityError if the store is already at MaxNodes.
func (s *Store) AddNode(node *Node) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node == nil {
		return nil, &InvalidArgumentError{Field: "node", Reason: "nil node"}
	}

	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	if _, exists := s.nodes[node.ID]; !exists {
		if s.config.MaxNodes > 0 && len(s.nodes) >= s.config.MaxNodes {
			return nil, &CapacityError{Limit: "maxNodes", Value: s.config.MaxNodes}
		}
	}

	now := time.Now()
	stored := node.Clone()
	if stored.Properties == nil {
		stored.Properties = make(PropertyMap)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.nodes[stored.ID] = stored
	if _, ok := s.outAdj[stored.ID]; !ok {
		s.outAdj[stored.ID] = nil
	}
	if _, ok := s.inAdj[stored.ID]; !ok {
		s.inAdj[stored.ID] = nil
	}

	s.recordHistory("addNode", stored.ID)
	s.notify(ChangeEvent{Kind: ChangeNodeAdded, Node: stored.Clone()})

	return stored.Clone(), nil
}

// AddEdge inserts edge between two existing nodes. Fails with NotFoundError
// if either endpoint is missing, or CapacityError if source's out-degree is
// already at MaxEdgesPerNode.
func (s *Store) AddEdge(edge *Edge) (*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edge == nil {
		return nil, &InvalidArgumentError{Field: "edge", Reason: "nil edge"}
	}
	if _, ok := s.nodes[edge.SourceID]; !ok {
		return nil, &NotFoundError{Kind: "node", ID: edge.SourceID}
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return nil, &NotFoundError{Kind: "node", ID: edge.TargetID}
	}

	if edge.ID == "" {
		edge.ID = uuid.New().String()
	}

	if _, exists := s.edges[edge.ID]; !exists {
		if s.config.MaxEdgesPerNode > 0 && len(s.outAdj[edge.SourceID]) >= s.config.MaxEdgesPerNode {
			return nil, &CapacityError{Limit: "maxEdgesPerNode", Value: s.config.MaxEdgesPerNode}
		}
	}

	now := time.Now()
	stored := edge.Clone()
	if stored.Properties == nil {
		stored.Properties = make(PropertyMap)
	}
	if stored.Weight == 0 {
		stored.Weight = 1.0
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.edges[stored.ID] = stored
	s.outAdj[stored.SourceID] = append(s.outAdj[stored.SourceID], stored.ID)
	s.inAdj[stored.TargetID] = append(s.inAdj[stored.TargetID], stored.ID)

	s.recordHistory("addEdge", stored.ID)
	s.notify(ChangeEvent{Kind: ChangeEdgeAdded, Edge: stored.Clone()})

	return stored.Clone(), nil
}

// GetNode returns a defensive copy of the node with the given id.
func (s *Store) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	return n.Clone(), nil
}

// GetOutgoing returns outgoing neighbor triples for id, optionally filtered
// to the given relation types (nil/empty means no filter).
func (s *Store) GetOutgoing(id string, relTypes []string) ([]NeighborTriple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	return s.collectDirection(s.outAdj[id], relTypes, DirectionOut), nil
}

// GetIncoming returns incoming neighbor triples for id, optionally filtered
// to the given relation types.
func (s *Store) GetIncoming(id string, relTypes []string) ([]NeighborTriple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	return s.collectDirection(s.inAdj[id], relTypes, DirectionIn), nil
}

// GetNeighbors returns outgoing triples followed by incoming triples,
// optionally filtered to the given relation types.
func (s *Store) GetNeighbors(id string, relTypes []string) ([]NeighborTriple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return nil, &NotFoundError{Kind: "node", ID: id}
	}
	out := s.collectDirection(s.outAdj[id], relTypes, DirectionOut)
	in := s.collectDirection(s.inAdj[id], relTypes, DirectionIn)
	return append(out, in...), nil
}

// must be called with s.mu held for reading.
func (s *Store) collectDirection(edgeIDs []string, relTypes []string, dir Direction) []NeighborTriple {
	var allow map[string]struct{}
	if len(relTypes) > 0 {
		allow = make(map[string]struct{}, len(relTypes))
		for _, t := range relTypes {
			allow[t] = struct{}{}
		}
	}

	triples := make([]NeighborTriple, 0, len(edgeIDs))
	for _, eid := range edgeIDs {
		e, ok := s.edges[eid]
		if !ok {
			continue
		}
		if allow != nil {
			if _, ok := allow[e.Type]; !ok {
				continue
			}
		}
		var neighborID string
		if dir == DirectionOut {
			neighborID = e.TargetID
		} else {
			neighborID = e.SourceID
		}
		n, ok := s.nodes[neighborID]
		if !ok {
			continue
		}
		triples = append(triples, NeighborTriple{Node: n.Clone(), Edge: e.Clone(), Direction: dir})
	}
	return triples
}

// RemoveEdge removes edge e, detaching it from both adjacency lists.
func (s *Store) RemoveEdge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEdgeLocked(id)
}

func (s *Store) removeEdgeLocked(id string) error {
	e, ok := s.edges[id]
	if !ok {
		return &NotFoundError{Kind: "edge", ID: id}
	}

	s.outAdj[e.SourceID] = removeString(s.outAdj[e.SourceID], id)
	s.inAdj[e.TargetID] = removeString(s.inAdj[e.TargetID], id)
	delete(s.edges, id)

	s.recordHistory("removeEdge", id)
	s.notify(ChangeEvent{Kind: ChangeEdgeRemoved, Edge: e.Clone()})
	return nil
}

func removeString(slice []string, target string) []string {
	for i, v := range slice {
		if v == target {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}

// RemoveNode removes every edge incident to id (via the documented
// removeEdge path, not by direct mutation) and then the node itself.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return &NotFoundError{Kind: "node", ID: id}
	}

	incident := append([]string{}, s.outAdj[id]...)
	incident = append(incident, s.inAdj[id]...)
	for _, eid := range incident {
		if _, exists := s.edges[eid]; exists {
			if err := s.removeEdgeLocked(eid); err != nil {
				return err
			}
		}
	}

	delete(s.nodes, id)
	delete(s.outAdj, id)
	delete(s.inAdj, id)

	s.recordHistory("removeNode", id)
	s.notify(ChangeEvent{Kind: ChangeNodeRemoved, Node: n.Clone()})
	return nil
}

// GetAllNodes returns defensive copies of every node, ordered by creation
// time then id for determinism.
func (s *Store) GetAllNodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetAllEdges returns defensive copies of every edge, ordered by creation
// time then id.
func (s *Store) GetAllEdges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Density returns m / (n*(n-1)), the directed-graph density metric, 0 when
// fewer than 2 nodes exist.
func (s *Store) Density() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.nodes)
	if n < 2 {
		return 0
	}
	m := len(s.edges)
	return float64(m) / float64(n*(n-1))
}

// Clear removes every node and edge, resetting the store to empty. The
// operation history ring is preserved (the clear itself is recorded).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*Node)
	s.edges = make(map[string]*Edge)
	s.outAdj = make(map[string][]string)
	s.inAdj = make(map[string][]string)

	s.recordHistory("clear", "")
	s.notify(ChangeEvent{Kind: ChangeCleared})
}

// History returns a copy of the bounded operation-history ring, oldest
// first. It is a non-authoritative post-mortem log, not part of the
// correctness contract.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) < s.config.HistorySize {
		out := make([]HistoryEntry, len(s.history))
		copy(out, s.history)
		return out
	}

	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history[s.historyHead:])
	copy(out[len(s.history)-s.historyHead:], s.history[:s.historyHead])
	return out
}

// ValidateConsistency walks every invariant and returns an aggregated
// InvariantError listing every violation found, or nil if none. It is used
// for diagnostics and tests, never invoked on the steady-state write path.
func (s *Store) ValidateConsistency() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var violations []string

	if len(s.nodes) != len(s.outAdj) || len(s.nodes) != len(s.inAdj) {
		violations = append(violations, fmt.Sprintf("node count %d does not match adjacency table sizes (out=%d, in=%d)", len(s.nodes), len(s.outAdj), len(s.inAdj)))
	}

	for id := range s.outAdj {
		if _, ok := s.nodes[id]; !ok {
			violations = append(violations, fmt.Sprintf("outAdj references missing node %q", id))
		}
	}
	for id := range s.inAdj {
		if _, ok := s.nodes[id]; !ok {
			violations = append(violations, fmt.Sprintf("inAdj references missing node %q", id))
		}
	}

	for id, e := range s.edges {
		if e.ID != id {
			violations = append(violations, fmt.Sprintf("edge key %q does not match edge.ID %q", id, e.ID))
		}
		if _, ok := s.nodes[e.SourceID]; !ok {
			violations = append(violations, fmt.Sprintf("edge %q references missing source %q", id, e.SourceID))
		}
		if _, ok := s.nodes[e.TargetID]; !ok {
			violations = append(violations, fmt.Sprintf("edge %q references missing target %q", id, e.TargetID))
		}

		outCount := countOccurrences(s.outAdj[e.SourceID], id)
		if outCount != 1 {
			violations = append(violations, fmt.Sprintf("edge %q appears %d times in outAdj(%q), expected 1", id, outCount, e.SourceID))
		}
		inCount := countOccurrences(s.inAdj[e.TargetID], id)
		if inCount != 1 {
			violations = append(violations, fmt.Sprintf("edge %q appears %d times in inAdj(%q), expected 1", id, inCount, e.TargetID))
		}
	}

	if s.config.MaxNodes > 0 && len(s.nodes) > s.config.MaxNodes {
		violations = append(violations, fmt.Sprintf("node count %d exceeds maxNodes %d", len(s.nodes), s.config.MaxNodes))
	}
	if s.config.MaxEdgesPerNode > 0 {
		for id, out := range s.outAdj {
			if len(out) > s.config.MaxEdgesPerNode {
				violations = append(violations, fmt.Sprintf("node %q out-degree %d exceeds maxEdgesPerNode %d", id, len(out), s.config.MaxEdgesPerNode))
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &InvariantError{Violations: violations}
}

func countOccurrences(slice []string, target string) int {
	n := 0
	for _, v := range slice {
		if v == target {
			n++
		}
	}
	return n
}
