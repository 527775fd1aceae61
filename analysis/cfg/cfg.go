package cfg

import (
	"go/ast"
	"go/token"

	"github.com/cs-au-dk/gflow/analysis/variable"
	"github.com/cs-au-dk/gflow/utils/graph"
)

// Cfg is the control flow graph of a single function body. Nodes and edges
// live in arenas and are addressed by index. The graph has a single entry
// edge, with no source, leading to the body's BLOCK node, and a single END
// node. A Cfg is never modified after it has been built.
type Cfg struct {
	Fset *token.FileSet
	// Fun is the *ast.FuncDecl or *ast.FuncLit the graph was built from.
	Fun  ast.Node
	Vars *variable.Table

	nodes []Node
	edges []Edge
	in    [][]EdgeID
	out   [][]EdgeID
	entry EdgeID
	end   NodeID
}

func (g *Cfg) addNode(n Node) NodeID {
	g.nodes = append(g.nodes, n)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	return n.ID()
}

func (g *Cfg) addEdge(from, to NodeID, label Label) EdgeID {
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{id, from, to, label})
	if from != NoNode {
		g.out[from] = append(g.out[from], id)
	}
	g.in[to] = append(g.in[to], id)
	return id
}

// Nodes lists all node IDs in builder order.
func (g *Cfg) Nodes() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range ids {
		ids[i] = NodeID(i)
	}
	return ids
}

func (g *Cfg) Len() int {
	return len(g.nodes)
}

func (g *Cfg) NumEdges() int {
	return len(g.edges)
}

func (g *Cfg) Node(id NodeID) Node {
	return g.nodes[id]
}

func (g *Cfg) Edge(id EdgeID) Edge {
	return g.edges[id]
}

// InEdges lists the edges entering n in creation order.
func (g *Cfg) InEdges(n NodeID) []EdgeID {
	return g.in[n]
}

// OutEdges lists the edges leaving n in creation order.
func (g *Cfg) OutEdges(n NodeID) []EdgeID {
	return g.out[n]
}

// Source returns the node an edge leaves. The entry edge has no source.
func (g *Cfg) Source(e EdgeID) (NodeID, bool) {
	from := g.edges[e].From
	return from, from != NoNode
}

func (g *Cfg) Target(e EdgeID) NodeID {
	return g.edges[e].To
}

func (g *Cfg) EntryEdges() []EdgeID {
	return []EdgeID{g.entry}
}

// Entry is the first node of the function body.
func (g *Cfg) Entry() NodeID {
	return g.edges[g.entry].To
}

func (g *Cfg) End() NodeID {
	return g.end
}

func (g *Cfg) Successors(n NodeID) []NodeID {
	succs := make([]NodeID, 0, len(g.out[n]))
	for _, e := range g.out[n] {
		succs = append(succs, g.edges[e].To)
	}
	return succs
}

func (g *Cfg) Predecessors(n NodeID) []NodeID {
	preds := make([]NodeID, 0, len(g.in[n]))
	for _, e := range g.in[n] {
		if from, ok := g.Source(e); ok {
			preds = append(preds, from)
		}
	}
	return preds
}

// IsMerge holds for nodes where control flow joins.
func (g *Cfg) IsMerge(n NodeID) bool {
	return len(g.in[n]) > 1
}

// graph exposes the successor relation to the generic graph algorithms.
func (g *Cfg) graph() graph.Graph[NodeID] {
	return graph.Of(g.Successors)
}

// Reachable computes the set of nodes reachable from the entry.
func (g *Cfg) Reachable() map[NodeID]bool {
	reached := make(map[NodeID]bool, len(g.nodes))
	for _, n := range g.graph().Reachable(g.Entry()) {
		reached[n] = true
	}
	return reached
}

// BackEdges collects the edges whose target dominates their source.
// Unreachable nodes are ignored.
func (g *Cfg) BackEdges() map[EdgeID]bool {
	dom := g.graph().Dominators(g.Entry())
	reached := g.Reachable()

	back := make(map[EdgeID]bool)
	for _, e := range g.edges {
		if e.From != NoNode && reached[e.From] && dom.Dominates(e.To, e.From) {
			back[e.ID] = true
		}
	}
	return back
}

// LoopHeaders finds the targets of back edges.
func (g *Cfg) LoopHeaders() map[NodeID]bool {
	headers := make(map[NodeID]bool)
	for e := range g.BackEdges() {
		headers[g.edges[e].To] = true
	}
	return headers
}

// Priorities orders nodes for the worklist: nodes in earlier strongly
// connected components of the condensation come first, so loops are
// stabilized before the code after them is visited. Ties are broken by
// builder order.
func (g *Cfg) Priorities() func(a, b NodeID) bool {
	scc := g.graph().SCC(g.Nodes())

	// Components are discovered in reverse topological order.
	return func(a, b NodeID) bool {
		ca, cb := scc.ComponentOf(a), scc.ComponentOf(b)
		if ca != cb {
			return ca > cb
		}
		return a < b
	}
}
