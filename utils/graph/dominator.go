package graph

import "fmt"

// DomTree is the dominator tree of the nodes reachable from a root.
type DomTree[T comparable] struct {
	// order lists the nodes in DFS post-order, the root last.
	order []T
	post  map[T]int
	// idom maps post-order numbers to the number of the immediate dominator.
	idom []int
}

// Dominators computes the dominator tree rooted at root with the iterative
// algorithm of Cooper, Harvey and Kennedy.
//
// See https://www.cs.rice.edu/~keith/EMBED/dom.pdf
func (G Graph[T]) Dominators(root T) *DomTree[T] {
	d := &DomTree[T]{post: make(map[T]int)}
	preds := make(map[T][]T)

	visiting := make(map[T]bool)
	var dfs func(T)
	dfs = func(node T) {
		visiting[node] = true
		for _, e := range G.Edges(node) {
			preds[e] = append(preds[e], node)
			if !visiting[e] {
				dfs(e)
			}
		}
		d.post[node] = len(d.order)
		d.order = append(d.order, node)
	}
	dfs(root)

	n := len(d.order)
	d.idom = make([]int, n)
	for i := range d.idom {
		d.idom[i] = -1
	}
	d.idom[n-1] = n - 1

	for changed := true; changed; {
		changed = false
		// Reverse post-order, skipping the root.
		for i := n - 2; i >= 0; i-- {
			idom := -1
			for _, p := range preds[d.order[i]] {
				j := d.post[p]
				switch {
				case d.idom[j] == -1:
				case idom == -1:
					idom = j
				default:
					idom = d.intersect(j, idom)
				}
			}
			if idom != d.idom[i] {
				d.idom[i] = idom
				changed = true
			}
		}
	}
	return d
}

func (d *DomTree[T]) intersect(a, b int) int {
	for a != b {
		if a < b {
			a = d.idom[a]
		} else {
			b = d.idom[b]
		}
	}
	return a
}

func (d *DomTree[T]) number(node T) int {
	i, found := d.post[node]
	if !found {
		panic(fmt.Errorf("%v was not reachable when computing the dominator tree", node))
	}
	return i
}

// Idom is the immediate dominator of node. The root has none.
func (d *DomTree[T]) Idom(node T) (idom T, ok bool) {
	i := d.number(node)
	if i == len(d.order)-1 {
		return idom, false
	}
	return d.order[d.idom[i]], true
}

// Dominates reports whether every path from the root to b passes through a.
// Both nodes must be reachable.
func (d *DomTree[T]) Dominates(a, b T) bool {
	return d.Common(a, b) == a
}

// Common is the nearest node dominating all the given nodes.
func (d *DomTree[T]) Common(nodes ...T) T {
	if len(nodes) == 0 {
		panic("Empty list of nodes for dominator computation")
	}
	dom := d.number(nodes[0])
	for _, node := range nodes[1:] {
		dom = d.intersect(d.number(node), dom)
	}
	return d.order[dom]
}
