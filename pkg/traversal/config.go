package traversal

import "github.com/arborgraph/kgraph/pkg/graph"

// Direction selects which adjacency to expand during traversal.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionBoth
)

// Config is the closed configuration set for BFS/DFS traversal.
//
// MaxDepth is a hard bound, not a "0 means unlimited" convention: MaxDepth
// 0 means the walk never leaves the start node (used by the
// includeStartNode-only boundary case); negative MaxDepth means unlimited
// depth. MaxNodes 0 means unlimited result count.
type Config struct {
	MaxDepth         int
	MaxNodes         int
	RelTypes         []string // nil/empty means no relation-type filter
	Direction        Direction
	IncludeStartNode bool
	NodeFilter       func(*graph.Node) bool
	EdgeFilter       func(*graph.Edge) bool
}

func (c Config) neighbors(view GraphView, id string) ([]graph.NeighborTriple, error) {
	switch c.Direction {
	case DirectionOut:
		return view.GetOutgoing(id, c.RelTypes)
	case DirectionIn:
		return view.GetIncoming(id, c.RelTypes)
	default:
		return view.GetNeighbors(id, c.RelTypes)
	}
}

func (c Config) admitsDepth(depth int) bool {
	return c.MaxDepth < 0 || depth <= c.MaxDepth
}

// Result holds the outcome of a bounded walk: admitted nodes in discovery
// order, the path from the start to each admitted node, and each admitted
// node's depth.
type Result struct {
	Nodes  []*graph.Node
	Paths  map[string][]string
	Depths map[string]int
}
