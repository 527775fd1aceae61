package constprop

import (
	"github.com/cs-au-dk/gflow/analysis/cfg"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
)

// Print renders the trace of g with the fact of every edge appended.
func Print(g *cfg.Cfg, res *Result) string {
	return Printer(res, false).Print(g)
}

// Printer renders traces with the facts of res. Edges that were never
// reached show ⊥.
func Printer(res *Result, colorize bool) cfg.Printer {
	fact := Labeler(res)
	if colorize {
		fact = func(e cfg.EdgeID) string {
			a, _ := res.Fact(e)
			return a.Pretty()
		}
	}
	return cfg.Printer{
		Fact:     fact,
		Colorize: colorize,
	}
}

// Labeler renders the fact of an edge, as expected by cfg.Printer and
// Cfg.Visualize.
func Labeler(res *Result) func(cfg.EdgeID) string {
	return func(e cfg.EdgeID) string {
		if a, ok := res.Fact(e); ok {
			return a.String()
		}
		return L.None.String()
	}
}
