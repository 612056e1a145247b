package traversal

// AllPaths enumerates paths from sourceID to targetID via depth-limited
// recursion with a path-local visited set: a node may be revisited across
// distinct paths, but never twice within the same path. Recursion stops at
// maxDepth edges and the result is capped at maxPaths entries.
func AllPaths(view GraphView, sourceID, targetID string, maxDepth, maxPaths int) ([][]string, error) {
	if _, err := view.GetNode(sourceID); err != nil {
		return nil, err
	}
	if _, err := view.GetNode(targetID); err != nil {
		return nil, err
	}

	var results [][]string
	visited := map[string]bool{sourceID: true}
	path := []string{sourceID}

	var walk func(current string, depth int) error
	walk = func(current string, depth int) error {
		if maxPaths > 0 && len(results) >= maxPaths {
			return nil
		}
		if current == targetID {
			results = append(results, append([]string{}, path...))
			return nil
		}
		if maxDepth >= 0 && depth >= maxDepth {
			return nil
		}

		triples, err := view.GetOutgoing(current, nil)
		if err != nil {
			return err
		}
		for _, triple := range triples {
			if maxPaths > 0 && len(results) >= maxPaths {
				return nil
			}
			nid := triple.Node.ID
			if visited[nid] {
				continue
			}
			visited[nid] = true
			path = append(path, nid)

			if err := walk(nid, depth+1); err != nil {
				return err
			}

			path = path[:len(path)-1]
			visited[nid] = false
		}
		return nil
	}

	if err := walk(sourceID, 0); err != nil {
		return nil, err
	}
	return results, nil
}
