// Package pq provides a priority queue of distinct elements.
package pq

import "container/heap"

// PriorityQueue pops its least element first. An element is queued at most
// once, and its position is tracked so it can be re-prioritized.
type PriorityQueue[T comparable] struct {
	items items[T]
}

// items implements heap.Interface, keeping pos in sync with list.
type items[T comparable] struct {
	list []T
	pos  map[T]int
	less func(a, b T) bool
}

func (h items[T]) Len() int           { return len(h.list) }
func (h items[T]) Less(i, j int) bool { return h.less(h.list[i], h.list[j]) }

func (h items[T]) Swap(i, j int) {
	h.list[i], h.list[j] = h.list[j], h.list[i]
	h.pos[h.list[i]] = i
	h.pos[h.list[j]] = j
}

func (h *items[T]) Push(x any) {
	el := x.(T)
	h.pos[el] = len(h.list)
	h.list = append(h.list, el)
}

func (h *items[T]) Pop() any {
	last := len(h.list) - 1
	el := h.list[last]
	h.list = h.list[:last]
	delete(h.pos, el)
	return el
}

// Empty creates a priority queue ordered by less.
func Empty[T comparable](less func(a, b T) bool) PriorityQueue[T] {
	return PriorityQueue[T]{items[T]{pos: make(map[T]int), less: less}}
}

func (p *PriorityQueue[T]) Len() int {
	return p.items.Len()
}

func (p *PriorityQueue[T]) IsEmpty() bool {
	return p.Len() == 0
}

func (p *PriorityQueue[T]) Contains(x T) bool {
	_, found := p.items.pos[x]
	return found
}

// Add queues x unless it is already queued.
func (p *PriorityQueue[T]) Add(x T) {
	if !p.Contains(x) {
		heap.Push(&p.items, x)
	}
}

// GetNext pops the least element. The queue must not be empty.
func (p *PriorityQueue[T]) GetNext() T {
	return heap.Pop(&p.items).(T)
}

// Fix restores the order after the priority of x changed. It reports
// whether x was queued.
func (p *PriorityQueue[T]) Fix(x T) bool {
	i, found := p.items.pos[x]
	if found {
		heap.Fix(&p.items, i)
	}
	return found
}
