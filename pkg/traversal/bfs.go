package traversal

type frontierItem struct {
	id    string
	depth int
	path  []string
}

// BFS performs a level-order walk from startID using a FIFO frontier. The
// visited set prevents revisits. The node filter is applied at dequeue,
// before admission to results; the edge filter is applied while expanding
// a node's neighbors, skipping that edge (and the neighbor reached only
// through it) without permanently blacklisting either. Terminates when
// results reach cfg.MaxNodes or the frontier empties.
func BFS(view GraphView, startID string, cfg Config) (*Result, error) {
	if _, err := view.GetNode(startID); err != nil {
		return nil, err
	}

	result := &Result{Paths: map[string][]string{}, Depths: map[string]int{}}
	visited := map[string]bool{startID: true}
	queue := []frontierItem{{id: startID, depth: 0, path: []string{startID}}}

	for len(queue) > 0 {
		if cfg.MaxNodes > 0 && len(result.Nodes) >= cfg.MaxNodes {
			break
		}

		item := queue[0]
		queue = queue[1:]

		if err := admit(view, cfg, result, item); err != nil {
			return nil, err
		}

		if !cfg.admitsDepth(item.depth + 1) {
			continue
		}

		triples, err := cfg.neighbors(view, item.id)
		if err != nil {
			return nil, err
		}
		for _, triple := range triples {
			if cfg.EdgeFilter != nil && !cfg.EdgeFilter(triple.Edge) {
				continue
			}
			nid := triple.Node.ID
			if visited[nid] {
				continue
			}
			visited[nid] = true
			path := append(append([]string{}, item.path...), nid)
			queue = append(queue, frontierItem{id: nid, depth: item.depth + 1, path: path})
		}
	}

	return result, nil
}

// admit applies the node filter and start-node-inclusion rule, then records
// the node, its path, and its depth into result if it is admitted.
func admit(view GraphView, cfg Config, result *Result, item frontierItem) error {
	if item.depth == 0 && !cfg.IncludeStartNode {
		return nil
	}
	node, err := view.GetNode(item.id)
	if err != nil {
		return err
	}
	if cfg.NodeFilter != nil && !cfg.NodeFilter(node) {
		return nil
	}

	if cfg.MaxNodes > 0 && len(result.Nodes) >= cfg.MaxNodes {
		return nil
	}

	result.Nodes = append(result.Nodes, node)
	result.Depths[item.id] = item.depth
	result.Paths[item.id] = item.path
	return nil
}
