package traversal

// BidirectionalSearch finds the shortest path between source and target by
// expanding two frontiers: forward from source (direction out), backward
// from target (direction in). Each step expands exactly one side — the
// smaller of the two frontiers, forward breaking ties — and a meeting is
// detected as soon as a newly-reached node on one side already appears in
// the other side's visited set. If both frontiers drain without meeting,
// returns (nil, -1, nil): no path, not an error.
func BidirectionalSearch(view GraphView, sourceID, targetID string, maxDepth int) ([]string, int, error) {
	if _, err := view.GetNode(sourceID); err != nil {
		return nil, -1, err
	}
	if sourceID == targetID {
		return []string{sourceID}, 0, nil
	}
	if _, err := view.GetNode(targetID); err != nil {
		return nil, -1, err
	}

	forwardParent := map[string]string{sourceID: ""}
	backwardParent := map[string]string{targetID: ""}
	frontierF := []string{sourceID}
	frontierB := []string{targetID}

	steps := 0
	for len(frontierF) > 0 && len(frontierB) > 0 && (maxDepth < 0 || steps < maxDepth) {
		steps++

		var meeting string
		var found bool

		if len(frontierF) <= len(frontierB) {
			next, err := expandLevel(view, frontierF, forwardParent, DirectionOut)
			if err != nil {
				return nil, -1, err
			}
			frontierF = next
			meeting, found = firstMeeting(next, backwardParent)
		} else {
			next, err := expandLevel(view, frontierB, backwardParent, DirectionIn)
			if err != nil {
				return nil, -1, err
			}
			frontierB = next
			meeting, found = firstMeeting(next, forwardParent)
		}

		if found {
			return reconstructPath(meeting, forwardParent, backwardParent), pathDistance(meeting, forwardParent, backwardParent), nil
		}
	}

	return nil, -1, nil
}

// expandLevel expands every node in frontier one hop in the given
// direction, recording newly-discovered nodes' parents and returning the
// next frontier.
func expandLevel(view GraphView, frontier []string, parent map[string]string, dir Direction) ([]string, error) {
	var next []string
	for _, id := range frontier {
		var err error
		var neighborIDs []string
		switch dir {
		case DirectionOut:
			t, e := view.GetOutgoing(id, nil)
			err = e
			for _, tr := range t {
				neighborIDs = append(neighborIDs, tr.Node.ID)
			}
		default:
			t, e := view.GetIncoming(id, nil)
			err = e
			for _, tr := range t {
				neighborIDs = append(neighborIDs, tr.Node.ID)
			}
		}
		if err != nil {
			return nil, err
		}

		for _, nid := range neighborIDs {
			if _, seen := parent[nid]; seen {
				continue
			}
			parent[nid] = id
			next = append(next, nid)
		}
	}
	return next, nil
}

func firstMeeting(candidates []string, otherParent map[string]string) (string, bool) {
	for _, id := range candidates {
		if _, ok := otherParent[id]; ok {
			return id, true
		}
	}
	return "", false
}

func chainToRoot(id string, parent map[string]string) []string {
	var chain []string
	for {
		chain = append(chain, id)
		p, ok := parent[id]
		if !ok || p == "" {
			break
		}
		id = p
	}
	// reverse so it reads root..id
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func reconstructPath(meeting string, forwardParent, backwardParent map[string]string) []string {
	forward := chainToRoot(meeting, forwardParent) // source..meeting
	backward := chainToRoot(meeting, backwardParent) // target..meeting

	// reverse backward to get meeting..target, then drop the duplicate meeting node
	for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
		backward[i], backward[j] = backward[j], backward[i]
	}

	return append(forward, backward[1:]...)
}

func pathDistance(meeting string, forwardParent, backwardParent map[string]string) int {
	return len(reconstructPath(meeting, forwardParent, backwardParent)) - 1
}
