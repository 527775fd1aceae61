// Package flow solves forward dataflow problems over graphs whose edges carry
// the facts. The engine is generic in the node, edge and fact types.
package flow

import (
	"errors"
	"fmt"

	"github.com/cs-au-dk/gflow/utils/pq"
	"github.com/cs-au-dk/gflow/utils/worklist"
)

var (
	// ErrNoConvergence is returned when the number of node visits exceeds the
	// bound implied by the lattice height. It means the analysis is not
	// monotone.
	ErrNoConvergence = errors.New("analysis did not converge")

	errInternal = errors.New("internal error")
)

// Graph is the view of a control flow graph needed by the engine.
type Graph[N, E comparable] interface {
	Nodes() []N
	// EntryEdges are seeded with the initial fact.
	EntryEdges() []E
	InEdges(N) []E
	OutEdges(N) []E
	Target(E) N
}

// Analysis is a monotone framework over the graph type G. Facts of type A
// live on the edges.
type Analysis[N, E comparable, G Graph[N, E], A any] interface {
	// Initial is the fact on the entry edges.
	Initial(g G) A
	Join(a, b A) A
	Equal(a, b A) bool
	// Height bounds the length of ascending chains of facts for g.
	Height(g G) int
	// Interpret is the flow function of n. It returns one fact per out edge,
	// in the order of OutEdges.
	Interpret(g G, n N, in A) []A
}

// Result maps edges to the facts computed for them. Edges that were never
// reached have no fact.
type Result[E comparable, A any] struct {
	facts map[E]A
	// Visits is the number of flow function applications.
	Visits int
}

// Fact returns the fact of e, if any.
func (r *Result[E, A]) Fact(e E) (A, bool) {
	a, ok := r.facts[e]
	return a, ok
}

// Len is the number of edges with a fact.
func (r *Result[E, A]) Len() int {
	return len(r.facts)
}

// ForEach calls do for every edge with a fact, in no particular order.
func (r *Result[E, A]) ForEach(do func(E, A)) {
	for e, a := range r.facts {
		do(e, a)
	}
}

// In is the fact entering n: the join of the facts on its in edges. It
// reports false for nodes that were never reached.
func In[N, E comparable, G Graph[N, E], A any](g G, an Analysis[N, E, G, A], res *Result[E, A], n N) (in A, ok bool) {
	for _, e := range g.InEdges(n) {
		fact, found := res.facts[e]
		if !found {
			continue
		}
		if ok {
			in = an.Join(in, fact)
		} else {
			in, ok = fact, true
		}
	}
	return
}

type config[N comparable] struct {
	less    func(a, b N) bool
	observe func(n N, visits int)
}

// Option configures Solve.
type Option[N comparable] func(*config[N])

// WithOrder processes queued nodes by priority, smallest first. Without an
// order the worklist is FIFO.
func WithOrder[N comparable](less func(a, b N) bool) Option[N] {
	return func(c *config[N]) {
		c.less = less
	}
}

// WithObserver calls observe before every node visit.
func WithObserver[N comparable](observe func(n N, visits int)) Option[N] {
	return func(c *config[N]) {
		c.observe = observe
	}
}

// queue is implemented by the FIFO worklist and the priority queue.
type queue[N comparable] interface {
	Add(N)
	GetNext() N
	IsEmpty() bool
}

// Solve computes the least fixed point of the analysis on g. Every edge
// target is re-visited whenever the fact of the edge changes.
func Solve[N, E comparable, G Graph[N, E], A any](g G, an Analysis[N, E, G, A], opts ...Option[N]) (*Result[E, A], error) {
	cfg := config[N]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var Q queue[N]
	if cfg.less != nil {
		q := pq.Empty[N](cfg.less)
		Q = &q
	} else {
		Q = worklist.EmptyUnique[N]()
	}

	res := &Result[E, A]{facts: make(map[E]A)}

	init := an.Initial(g)
	for _, e := range g.EntryEdges() {
		res.facts[e] = init
		Q.Add(g.Target(e))
	}

	nodes := len(g.Nodes())
	edges := 0
	for _, n := range g.Nodes() {
		edges += len(g.OutEdges(n))
	}
	height := an.Height(g)
	bound := nodes + edges*(height+1)

	for !Q.IsEmpty() {
		n := Q.GetNext()

		res.Visits++
		if res.Visits > bound {
			return res, fmt.Errorf("%w: %d visits exceed the bound %d (%d nodes, %d edges, height %d)",
				ErrNoConvergence, res.Visits, bound, nodes, edges, height)
		}
		if cfg.observe != nil {
			cfg.observe(n, res.Visits)
		}

		in, ok := In[N, E, G, A](g, an, res, n)
		if !ok {
			// Only reached nodes are ever queued.
			panic(fmt.Errorf("%w: visiting a node without facts", errInternal))
		}

		outs := g.OutEdges(n)
		facts := an.Interpret(g, n, in)
		if len(facts) != len(outs) {
			panic(fmt.Errorf("%w: %d facts for %d out edges", errInternal, len(facts), len(outs)))
		}

		for i, e := range outs {
			if old, ok := res.facts[e]; ok && an.Equal(old, facts[i]) {
				continue
			}
			res.facts[e] = facts[i]
			Q.Add(g.Target(e))
		}
	}

	return res, nil
}
