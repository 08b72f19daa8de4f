package graph

// TraversalResult holds the nodes reached by a traversal and the statements
// among them.
type TraversalResult struct {
	Nodes   []string
	Triples []Triple
}

// Traverse walks the graph outward from the seed IRIs, following statements
// in both directions up to maxDepth hops. Literals terminate a path. Nodes
// come back in breadth-first discovery order; Triples are the statements
// whose subject was visited, in emission order.
func (g *KnowledgeGraph) Traverse(seeds []string, maxDepth int) TraversalResult {
	if len(seeds) == 0 || maxDepth < 0 {
		return TraversalResult{}
	}

	neighbours := make(map[string][]string)
	for _, tr := range g.triples {
		if tr.Object.IsLiteral {
			continue
		}
		neighbours[tr.Subject.Value] = append(neighbours[tr.Subject.Value], tr.Object.Value)
		neighbours[tr.Object.Value] = append(neighbours[tr.Object.Value], tr.Subject.Value)
	}

	visited := make(map[string]bool)
	var order, queue []string
	for _, s := range seeds {
		if !visited[s] {
			visited[s] = true
			order = append(order, s)
			queue = append(queue, s)
		}
	}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, node := range queue {
			for _, n := range neighbours[node] {
				if !visited[n] {
					visited[n] = true
					order = append(order, n)
					next = append(next, n)
				}
			}
		}
		queue = next
	}

	var triples []Triple
	for _, tr := range g.triples {
		if visited[tr.Subject.Value] {
			triples = append(triples, tr)
		}
	}

	return TraversalResult{Nodes: order, Triples: triples}
}
