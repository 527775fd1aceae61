package graph

import W "github.com/cs-au-dk/gflow/utils/worklist"

// Reachable computes the nodes reachable from the start nodes, in
// breadth-first order.
func (G Graph[T]) Reachable(starts ...T) (order []T) {
	visited := make(map[T]bool, len(starts))
	for _, start := range starts {
		visited[start] = true
	}

	W.StartV(starts, func(node T, add func(T)) {
		order = append(order, node)
		for _, next := range G.Edges(node) {
			if !visited[next] {
				visited[next] = true
				add(next)
			}
		}
	})
	return
}
