package constprop

import (
	"fmt"
	"io"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/variable"

	"github.com/vmihailenco/msgpack/v5"
)

// FunctionFacts is the exported fact table of one function.
type FunctionFacts struct {
	Function string      `msgpack:"function"`
	Visits   int         `msgpack:"visits"`
	Nodes    []string    `msgpack:"nodes"`
	Edges    []EdgeFacts `msgpack:"edges"`
}

// EdgeFacts is the assumption on one edge. Unreached edges have no entry.
type EdgeFacts struct {
	ID    int    `msgpack:"id"`
	From  int    `msgpack:"from"`
	To    int    `msgpack:"to"`
	Label string `msgpack:"label,omitempty"`
	// Vars lists the observed variables by increasing index.
	Vars []VarFact `msgpack:"vars"`
}

// VarFact records what is known about one variable. Value is the literal in
// Go syntax, or empty when the variable is not constant.
type VarFact struct {
	Index int    `msgpack:"index"`
	Name  string `msgpack:"name"`
	Value string `msgpack:"value,omitempty"`
}

// Facts collects the fact table of g for export.
func Facts(name string, g *cfg.Cfg, res *Result) FunctionFacts {
	ff := FunctionFacts{
		Function: name,
		Visits:   res.Visits,
		Nodes:    make([]string, 0, g.Len()),
	}
	for _, n := range g.Nodes() {
		ff.Nodes = append(ff.Nodes, g.Node(n).String())
	}

	for e := 0; e < g.NumEdges(); e++ {
		edge := g.Edge(cfg.EdgeID(e))
		a, ok := res.Fact(edge.ID)
		if !ok {
			continue
		}

		ef := EdgeFacts{
			ID:    int(edge.ID),
			From:  int(edge.From),
			To:    int(edge.To),
			Label: edge.Label.String(),
			Vars:  make([]VarFact, 0, a.Len()),
		}
		a.ForEach(func(v *variable.Variable, val L.Value) {
			vf := VarFact{Index: v.Index, Name: v.Name()}
			if lit, ok := val.Literal(); ok {
				vf.Value = lit.String()
			}
			ef.Vars = append(ef.Vars, vf)
		})
		ff.Edges = append(ff.Edges, ef)
	}
	return ff
}

// Export writes fact tables as MessagePack.
func Export(w io.Writer, facts []FunctionFacts) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(facts); err != nil {
		return fmt.Errorf("failed to encode facts: %w", err)
	}
	return nil
}

// Import reads fact tables written by Export.
func Import(r io.Reader) ([]FunctionFacts, error) {
	var facts []FunctionFacts
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&facts); err != nil {
		return nil, fmt.Errorf("failed to decode facts: %w", err)
	}
	return facts, nil
}
