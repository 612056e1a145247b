// Package traversal implements bounded graph exploration — BFS, DFS,
// bidirectional shortest-path, and depth-limited path enumeration — over a
// narrow read-only capability rather than a concrete store type, so the
// same algorithms compose over the in-memory graph store and the
// time-aware temporal view alike.
package traversal

import "github.com/arborgraph/kgraph/pkg/graph"

// GraphView is the narrow capability traversal depends on. Both
// *graph.Store and *temporal.Layer implement it, giving traversal
// polymorphism over graph implementations without any inheritance.
type GraphView interface {
	GetNode(id string) (*graph.Node, error)
	GetNeighbors(id string, relTypes []string) ([]graph.NeighborTriple, error)
	GetOutgoing(id string, relTypes []string) ([]graph.NeighborTriple, error)
	GetIncoming(id string, relTypes []string) ([]graph.NeighborTriple, error)
}
