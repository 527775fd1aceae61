package graph

import (
	"fmt"

	"github.com/cs-au-dk/gflow/utils"
	"github.com/cs-au-dk/gflow/utils/dot"
)

var opts = utils.Opts()

// VisualizationConfig customizes the dot rendering of a graph. Every field
// is optional.
type VisualizationConfig[T comparable] struct {
	// NodeAttrs gives the dot ID and attributes of a node. The ID defaults to
	// the printed node.
	NodeAttrs func(node T) (string, dot.DotAttrs)
	// EdgeAttrs gives the attributes of the i'th edge of a node.
	EdgeAttrs func(from T, i int) dot.DotAttrs
	// Cluster places nodes with the same ID in one cluster. The attributes of
	// the first node of a cluster apply to it.
	Cluster func(node T) (string, dot.DotAttrs)
}

// ToDotGraph renders the subgraph induced by nodes.
func (G Graph[T]) ToDotGraph(nodes []T, cfg *VisualizationConfig[T]) *dot.DotGraph {
	if cfg == nil {
		cfg = &VisualizationConfig[T]{}
	}

	dg := &dot.DotGraph{
		Rankdir: "TB",
		Minlen:  opts.Minlen(),
		Nodesep: opts.Nodesep(),
	}

	clusters := make(map[string]*dot.DotCluster)
	dotNodes := make(map[T]*dot.DotNode, len(nodes))
	for _, node := range nodes {
		dn := &dot.DotNode{ID: fmt.Sprint(node)}
		if cfg.NodeAttrs != nil {
			dn.ID, dn.Attrs = cfg.NodeAttrs(node)
		}
		dotNodes[node] = dn

		if cfg.Cluster == nil {
			dg.Nodes = append(dg.Nodes, dn)
			continue
		}
		id, attrs := cfg.Cluster(node)
		cl, found := clusters[id]
		if !found {
			cl = &dot.DotCluster{ID: id, Attrs: attrs}
			clusters[id] = cl
			dg.Clusters = append(dg.Clusters, cl)
		}
		cl.Nodes = append(cl.Nodes, dn)
	}

	for _, node := range nodes {
		for i, succ := range G.Edges(node) {
			to, found := dotNodes[succ]
			if !found {
				continue
			}
			e := &dot.DotEdge{From: dotNodes[node], To: to}
			if cfg.EdgeAttrs != nil {
				e.Attrs = cfg.EdgeAttrs(node, i)
			}
			dg.Edges = append(dg.Edges, e)
		}
	}
	return dg
}
