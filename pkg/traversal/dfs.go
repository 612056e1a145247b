package traversal

// DFS performs the same contract as BFS but with a LIFO frontier. Neighbors
// are pushed onto the stack in reverse order so that the first neighbor
// (the one a recursive left-to-right walk would visit first) is the one
// popped first.
func DFS(view GraphView, startID string, cfg Config) (*Result, error) {
	if _, err := view.GetNode(startID); err != nil {
		return nil, err
	}

	result := &Result{Paths: map[string][]string{}, Depths: map[string]int{}}
	visited := map[string]bool{startID: true}
	stack := []frontierItem{{id: startID, depth: 0, path: []string{startID}}}

	for len(stack) > 0 {
		if cfg.MaxNodes > 0 && len(result.Nodes) >= cfg.MaxNodes {
			break
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

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

		var toPush []frontierItem
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
			toPush = append(toPush, frontierItem{id: nid, depth: item.depth + 1, path: path})
		}
		for i := len(toPush) - 1; i >= 0; i-- {
			stack = append(stack, toPush[i])
		}
	}

	return result, nil
}
