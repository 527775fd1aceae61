package dot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DotAttrs are the attributes of a graph element.
type DotAttrs map[string]string

// String renders the attributes sorted by key, so output is deterministic.
func (p DotAttrs) String() string {
	keys := maps.Keys(p)
	slices.Sort(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%q;", k, p[k])
	}
	return sb.String()
}

type DotNode struct {
	ID    string
	Attrs DotAttrs
}

type DotEdge struct {
	From, To *DotNode
	Attrs    DotAttrs
}

// DotCluster draws its nodes in a shared box.
type DotCluster struct {
	ID    string
	Attrs DotAttrs
	Nodes []*DotNode
}

// DotGraph is a directed graph of nodes, some grouped in clusters.
type DotGraph struct {
	Title string
	// Rankdir defaults to LR.
	Rankdir string
	Minlen  uint
	Nodesep float64

	Clusters []*DotCluster
	Nodes    []*DotNode
	Edges    []*DotEdge
}

// WriteDot writes g in the dot language.
func (g *DotGraph) WriteDot(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(indent int, format string, args ...interface{}) {
		bw.WriteString(strings.Repeat("\t", indent))
		fmt.Fprintf(bw, format, args...)
		bw.WriteByte('\n')
	}

	rankdir := g.Rankdir
	if rankdir == "" {
		rankdir = "LR"
	}
	p(0, "digraph ControlFlowGraph {")
	p(1, "%s", DotAttrs{
		"label":     g.Title,
		"labeljust": "l",
		"fontname":  "Arial",
		"rankdir":   rankdir,
		"bgcolor":   "lightgray",
		"nodesep":   fmt.Sprint(g.Nodesep),
		"pad":       "0.0",
	})
	p(1, `node [shape="box" style="filled" fillcolor="honeydew" fontname="Verdana" margin="0.05,0.0"];`)
	p(1, "edge [minlen=%d];", g.Minlen)

	for _, c := range g.Clusters {
		p(1, "subgraph %q {", "cluster_"+c.ID)
		if len(c.Attrs) > 0 {
			p(2, "%s", c.Attrs)
		}
		for _, n := range c.Nodes {
			p(2, "%q [ %s ]", n.ID, n.Attrs)
		}
		p(1, "}")
	}
	for _, n := range g.Nodes {
		p(1, "%q [ %s ]", n.ID, n.Attrs)
	}
	for _, e := range g.Edges {
		p(1, "%q -> %q [ %s ]", e.From.ID, e.To.ID, e.Attrs)
	}
	p(0, "}")
	return bw.Flush()
}

// DotToImage renders dot source with graphviz into outfname.format and
// returns the path of the image. Without outfname the image goes to the
// temporary directory.
func DotToImage(outfname, format string, src []byte) (img string, err error) {
	graph, err := graphviz.ParseBytes(src)
	if err != nil {
		return "", fmt.Errorf("parsing dot: %w", err)
	}
	gv := graphviz.New()
	defer func() {
		if cerr := graph.Close(); err == nil {
			err = cerr
		}
		gv.Close()
	}()

	img = outfname + "." + format
	if outfname == "" {
		img = filepath.Join(os.TempDir(), "gflow_export."+format)
	}
	if err := gv.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", err
	}
	return img, nil
}
