// Package worklist provides the FIFO queues driving graph traversals and the
// concurrent processing of functions.
package worklist

import "sync"

// Worklist is a FIFO queue. The *Conc methods may be used from several
// goroutines at once; the others may not.
type Worklist[T any] struct {
	list []T
	// head is the index of the next element in list.
	head int
	mu   sync.Mutex
}

func Empty[T any]() *Worklist[T] {
	return &Worklist[T]{}
}

// Start processes the worklist holding start until it is empty. do receives
// each element in turn, and may queue more with add.
func Start[T any](start T, do func(next T, add func(el T))) {
	StartV([]T{start}, do)
}

// StartV is Start with several initial elements.
func StartV[T any](start []T, do func(next T, add func(el T))) {
	W := &Worklist[T]{list: append([]T(nil), start...)}
	for !W.IsEmpty() {
		do(W.GetNext(), W.Add)
	}
}

func (w *Worklist[T]) Add(el T) {
	if w.head > 0 && w.head == len(w.list) {
		w.list, w.head = w.list[:0], 0
	}
	w.list = append(w.list, el)
}

// GetNext pops the oldest element, or the zero value if w is empty.
func (w *Worklist[T]) GetNext() (next T) {
	if w.IsEmpty() {
		return
	}
	next = w.list[w.head]
	var zero T
	w.list[w.head] = zero
	w.head++
	return
}

func (w *Worklist[T]) Len() int {
	return len(w.list) - w.head
}

func (w *Worklist[T]) IsEmpty() bool {
	return w.Len() == 0
}

func (w *Worklist[T]) AddConc(el T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Add(el)
}

// TryGetNextConc pops the next element, reporting false if the worklist
// was empty. Checking for emptiness and popping happen atomically.
func (w *Worklist[T]) TryGetNextConc() (next T, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.IsEmpty() {
		return next, false
	}
	return w.GetNext(), true
}

func (w *Worklist[T]) IsEmptyConc() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.IsEmpty()
}

// Unique is a FIFO queue ignoring elements that are already queued.
type Unique[T comparable] struct {
	Worklist[T]
	queued map[T]bool
}

func EmptyUnique[T comparable]() *Unique[T] {
	return &Unique[T]{queued: make(map[T]bool)}
}

func (u *Unique[T]) Add(el T) {
	if !u.queued[el] {
		u.queued[el] = true
		u.Worklist.Add(el)
	}
}

func (u *Unique[T]) GetNext() T {
	el := u.Worklist.GetNext()
	delete(u.queued, el)
	return el
}

// Contains reports whether el is queued.
func (u *Unique[T]) Contains(el T) bool {
	return u.queued[el]
}
