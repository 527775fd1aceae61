package graph

// Condensation groups the nodes of a graph into strongly connected
// components. Edges only lead from a component to itself or to a component
// with a lower index, so the components are in reverse topological order.
type Condensation[T comparable] struct {
	Components [][]T
	index      map[T]int
	g          Graph[T]
}

// ComponentOf is the index of the component of node, or -1 if node was not
// reached.
func (c Condensation[T]) ComponentOf(node T) int {
	if i, found := c.index[node]; found {
		return i
	}
	return -1
}

// IsCyclic holds if some node of the component has an edge into the
// component itself.
func (c Condensation[T]) IsCyclic(comp int) bool {
	nodes := c.Components[comp]
	if len(nodes) > 1 {
		return true
	}
	for _, e := range c.g.Edges(nodes[0]) {
		if e == nodes[0] {
			return true
		}
	}
	return false
}

// SCC condenses the subgraph reachable from starts with Tarjan's algorithm.
func (G Graph[T]) SCC(starts []T) Condensation[T] {
	c := Condensation[T]{index: make(map[T]int), g: G}

	var (
		stack []T
		// low is the lowest discovery time reachable from a node that is
		// still on the stack.
		low   = make(map[T]int)
		clock int
	)

	var visit func(T) int
	visit = func(node T) int {
		clock++
		disc := clock
		low[node] = disc
		stack = append(stack, node)

		for _, e := range G.Edges(node) {
			if _, done := c.index[e]; done {
				continue
			}
			l, seen := low[e]
			if !seen {
				l = visit(e)
			}
			if l < low[node] {
				low[node] = l
			}
		}

		if low[node] == disc {
			var comp []T
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				c.index[top] = len(c.Components)
				comp = append(comp, top)
				if top == node {
					break
				}
			}
			c.Components = append(c.Components, comp)
		}
		return low[node]
	}

	for _, start := range starts {
		if _, seen := low[start]; !seen {
			visit(start)
		}
	}
	return c
}
