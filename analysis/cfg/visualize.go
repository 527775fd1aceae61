package cfg

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/cs-au-dk/gflow/utils/dot"
	"github.com/cs-au-dk/gflow/utils/graph"

	uf "github.com/spakin/disjoint"
)

type dotConfig = graph.VisualizationConfig[NodeID]

// BasicBlocks partitions the nodes into maximal straight-line chains: a node
// shares a block with its successor if it has a single out edge and the
// successor a single in edge. The result maps every node to the first node
// of its block.
func (g *Cfg) BasicBlocks() []NodeID {
	elements := make([]*uf.Element, len(g.nodes))
	for i := range elements {
		elements[i] = uf.NewElement()
	}
	for i := range g.nodes {
		if len(g.out[i]) != 1 {
			continue
		}
		to := g.edges[g.out[i][0]].To
		if len(g.in[to]) == 1 && to != NodeID(i) {
			uf.Union(elements[i], elements[to])
		}
	}

	// Blocks are named by their lowest node.
	leaders := make(map[*uf.Element]NodeID)
	blocks := make([]NodeID, len(g.nodes))
	for i, el := range elements {
		rep := el.Find()
		if _, ok := leaders[rep]; !ok {
			leaders[rep] = NodeID(i)
		}
		blocks[i] = leaders[rep]
	}
	return blocks
}

// ToDot creates the dot graph of g. Basic blocks become clusters and back
// edges are dashed. fact may be nil, otherwise edges are labeled with it.
func (g *Cfg) ToDot(title string, fact func(EdgeID) string) *dot.DotGraph {
	blocks := g.BasicBlocks()
	back := g.BackEdges()
	numbers := g.Numbering()

	dg := g.graph().ToDotGraph(g.Nodes(), &dotConfig{
		NodeAttrs: func(n NodeID) (string, dot.DotAttrs) {
			label := g.nodes[n].String()
			if numbers[n] > 0 {
				label = strconv.Itoa(numbers[n]) + ": " + label
			}
			attrs := dot.DotAttrs{"label": label, "shape": "box"}
			switch g.nodes[n].(type) {
			case *Cond:
				attrs["shape"] = "diamond"
				attrs["fillcolor"] = "lightyellow"
			case *End:
				attrs["shape"] = "doublecircle"
			case *Throw, *OptThrow:
				attrs["fillcolor"] = "mistyrose"
			}
			return fmt.Sprint(n), attrs
		},
		EdgeAttrs: func(from NodeID, i int) dot.DotAttrs {
			e := g.edges[g.out[from][i]]
			attrs := dot.DotAttrs{}
			label := e.Label.String()
			if fact != nil {
				if label != "" {
					label += " "
				}
				label += fact(e.ID)
			}
			if label != "" {
				attrs["label"] = label
			}
			if back[e.ID] {
				attrs["style"] = "dashed"
			}
			if e.Label == Re {
				attrs["color"] = "red"
			}
			return attrs
		},
		Cluster: func(n NodeID) (string, dot.DotAttrs) {
			return fmt.Sprint(blocks[n]), dot.DotAttrs{
				"label":     "",
				"style":     "rounded",
				"bgcolor":   "white",
				"fillcolor": "white",
			}
		},
	})
	dg.Title = title
	return dg
}

// Visualize renders the dot graph of g to an image file in the given format,
// returning its path.
func (g *Cfg) Visualize(title string, fact func(EdgeID) string, out, format string) (string, error) {
	var buf bytes.Buffer
	if err := g.ToDot(title, fact).WriteDot(&buf); err != nil {
		return "", fmt.Errorf("failed to write dot graph: %w", err)
	}
	if format == "dot" {
		path := out + ".dot"
		if out == "" {
			path = "gflow_export.dot"
		}
		return path, os.WriteFile(path, buf.Bytes(), 0o644)
	}
	return dot.DotToImage(out, format, buf.Bytes())
}
