// Package graph provides the graph algorithms used on control flow graphs.
// A graph is given by its successor function over comparable nodes.
package graph

type Graph[T comparable] struct {
	edgesOf func(node T) []T
	cache   map[T][]T
}

// Of creates the graph with the successor relation edgesOf. Successors are
// computed once per node.
func Of[T comparable](edgesOf func(node T) []T) Graph[T] {
	return Graph[T]{edgesOf, make(map[T][]T)}
}

func (G Graph[T]) Edges(node T) []T {
	if es, found := G.cache[node]; found {
		return es
	}
	es := G.edgesOf(node)
	G.cache[node] = es
	return es
}
