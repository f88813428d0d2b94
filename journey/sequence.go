package journey

// FindEntry returns the id of the journey's entry node. The first node of
// kind KindEntry wins; otherwise a node with id DefaultEntryID is used.
// Returns false if neither exists.
func FindEntry(nodes []Node) (string, bool) {
	for _, n := range nodes {
		if n.Kind == KindEntry {
			return n.ID, true
		}
	}
	for _, n := range nodes {
		if n.ID == DefaultEntryID {
			return n.ID, true
		}
	}
	return "", false
}

// ComputeSequence assigns a sequence number to every node reachable from the
// entry node using a breadth-first traversal. The entry node is 0 and each
// newly discovered node gets its discoverer's sequence plus one. A node
// reachable along several paths keeps the number from the path that reached
// it first, with edges explored in the order they appear in edges.
//
// Nodes that cannot be reached are absent from the result. Edges naming
// unknown nodes are ignored; Validate reports them. If there is no entry node
// the result is empty.
func ComputeSequence(nodes []Node, edges []Edge) SequenceMap {
	seq := make(SequenceMap)

	entry, ok := FindEntry(nodes)
	if !ok {
		return seq
	}

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	adjacency := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	seq[entry] = 0
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[current] {
			if _, visited := seq[next]; visited {
				continue
			}
			seq[next] = seq[current] + 1
			queue = append(queue, next)
		}
	}

	return seq
}

// Unreachable returns the ids of nodes that have no sequence, in input order.
func Unreachable(nodes []Node, seq SequenceMap) []string {
	var ids []string
	for _, n := range nodes {
		if !seq.Contains(n.ID) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
