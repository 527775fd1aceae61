package cfg

import (
	"strconv"
	"strings"

	"github.com/cs-au-dk/gflow/utils"
)

// Printer renders the trace of a Cfg, one line per node in builder order:
//
//	[N: ]KIND -> [EDGE, EDGE, ...]
//
// An edge is LABEL=TARGET, or TARGET when unlabeled. TARGET is * for the node
// listed next, otherwise the number of the target node. Only nodes entered
// from somewhere else than the previous line are numbered.
type Printer struct {
	// Fact renders the fact on an edge. It is appended to the edge when set.
	Fact func(EdgeID) string
	// Colorize the output, subject to -no-colorize.
	Colorize bool
}

// Print renders the plain trace of g.
func Print(g *Cfg) string {
	return Printer{}.Print(g)
}

// Numbering assigns the trace numbers. Unnumbered nodes map to 0.
func (g *Cfg) Numbering() []int {
	numbers := make([]int, len(g.nodes))
	next := 1
	for i := range g.nodes {
		id := NodeID(i)
		for _, e := range g.in[id] {
			if from := g.edges[e].From; from != NoNode && from != id-1 {
				numbers[id] = next
				next++
				break
			}
		}
	}
	return numbers
}

func (p Printer) Print(g *Cfg) string {
	nodeStr, labelStr, factStr := plain, plain, plain
	if p.Colorize {
		nodeStr, labelStr, factStr = utils.NodeString, utils.LabelString, utils.FactString
	}

	numbers := g.Numbering()
	target := func(from, to NodeID) string {
		if to == from+1 {
			return "*"
		}
		return strconv.Itoa(numbers[to])
	}

	var sb strings.Builder
	for i, n := range g.nodes {
		id := NodeID(i)
		if numbers[id] > 0 {
			sb.WriteString(labelStr(strconv.Itoa(numbers[id]) + ":"))
			sb.WriteByte(' ')
		}
		sb.WriteString(nodeStr(n.String()))

		if _, ok := n.(*End); !ok {
			sb.WriteString(" -> [")
			for j, e := range g.out[id] {
				if j > 0 {
					sb.WriteString(", ")
				}
				edge := g.edges[e]
				to := target(id, edge.To)
				if edge.Label != Fallthrough {
					to = edge.Label.String() + "=" + to
				}
				sb.WriteString(labelStr(to))
				if p.Fact != nil {
					sb.WriteByte(' ')
					sb.WriteString(factStr(p.Fact(e)))
				}
			}
			sb.WriteString("]")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func plain(s string) string { return s }
