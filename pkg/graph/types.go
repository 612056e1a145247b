package graph

import "time"

// Node is a typed entity in the knowledge graph. Identity is a stable
// opaque id; everything else may be mutated in place (property merge during
// entity resolution updates Properties and UpdatedAt).
type Node struct {
	ID         string
	Type       string
	Properties PropertyMap
	Embedding  []float32 // optional, fixed dimension D per graph instance
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a defensive deep copy of n, safe to hand to callers outside
// the store.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:        n.ID,
		Type:      n.Type,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Properties != nil {
		out.Properties = n.Properties.Clone()
	}
	if n.Embedding != nil {
		out.Embedding = make([]float32, len(n.Embedding))
		copy(out.Embedding, n.Embedding)
	}
	return out
}

// Edge is a typed, weighted, directed relationship between two nodes. Both
// endpoints must exist at creation time and at every successful consistency
// check.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Type       string
	Weight     float64
	Properties PropertyMap
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a defensive deep copy of e.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	out := &Edge{
		ID:        e.ID,
		SourceID:  e.SourceID,
		TargetID:  e.TargetID,
		Type:      e.Type,
		Weight:    e.Weight,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Properties != nil {
		out.Properties = e.Properties.Clone()
	}
	return out
}

// Direction describes which side of an edge a neighbor was reached from.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
)

func (d Direction) String() string {
	if d == DirectionOut {
		return "out"
	}
	return "in"
}

// NeighborTriple is one (node, edge, direction) result from getNeighbors:
// direction describes whether the edge was traversed outgoing (node is the
// edge's target) or incoming (node is the edge's source).
type NeighborTriple struct {
	Node      *Node
	Edge      *Edge
	Direction Direction
}

// HistoryEntry records a single mutation for the bounded operation-history
// ring. It is a non-authoritative post-mortem log, not part of the
// correctness contract.
type HistoryEntry struct {
	Kind      string
	Timestamp time.Time
	Details   string
}

// ChangeKind classifies a mutation reported to registered ChangeListeners.
type ChangeKind int

const (
	ChangeNodeAdded ChangeKind = iota
	ChangeNodeRemoved
	ChangeEdgeAdded
	ChangeEdgeRemoved
	ChangeCleared
)

// ChangeEvent is delivered to every registered ChangeListener synchronously
// on the mutating goroutine, immediately after the store's own tables are
// updated and while the store's lock is still held. Listeners (the index
// set) must not call back into the store.
type ChangeEvent struct {
	Kind ChangeKind
	Node *Node // set for node events
	Edge *Edge // set for edge events
}

// ChangeListener is notified of every committed mutation so that secondary
// indices stay in sync with the graph store without the store needing to
// know about indices directly.
type ChangeListener func(ChangeEvent)
