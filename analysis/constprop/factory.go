package constprop

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/flow"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/rewrite"
	"github.com/cs-au-dk/gflow/pkgutil"

	"golang.org/x/tools/go/packages"
)

type (
	// Analysis is constant propagation as a plain dataflow analysis.
	Analysis = flow.Analysis[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption]
	// Result is the converged fact table of a function.
	Result = flow.Result[cfg.EdgeID, L.Assumption]
	// Integrated couples the analysis with the rewriting of reads.
	Integrated = flow.IntegratedAnalysis[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption, rewrite.Stats]
)

// Factory creates constant propagation for the functions of one type checked
// package.
type Factory struct {
	Fset  *token.FileSet
	Types *types.Package
	Info  *types.Info
}

func NewFactory(pkg *packages.Package) Factory {
	return Factory{pkg.Fset, pkg.Types, pkg.TypesInfo}
}

// Analysis returns the flow functions.
func (f Factory) Analysis() Analysis {
	return analysis{f.Info}
}

// Integrated returns the analysis together with the transformation replacing
// reads of variables known to be constant.
func (f Factory) Integrated() Integrated {
	return Integrated{
		Analysis:    f.Analysis(),
		Transformer: transformer{f},
	}
}

// Solve runs the analysis on g. Loops are stabilized before the code
// following them.
func (f Factory) Solve(g *cfg.Cfg) (*Result, error) {
	return flow.Solve[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption](
		g, f.Analysis(), flow.WithOrder(g.Priorities()))
}

// Run solves g and rewrites its function.
func (f Factory) Run(g *cfg.Cfg) (rewrite.Stats, error) {
	return flow.Run[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption, rewrite.Stats](
		g, f.Integrated(), flow.WithOrder(g.Priorities()))
}

// In is the fact entering node n, if n was reached.
func (f Factory) In(g *cfg.Cfg, res *Result, n cfg.NodeID) (L.Assumption, bool) {
	return flow.In[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption](g, f.Analysis(), res, n)
}

// Folds maps every reachable read of a tracked variable to the literal the
// variable holds there.
func (f Factory) Folds(g *cfg.Cfg, res *Result) map[*ast.Ident]L.Literal {
	folds := make(map[*ast.Ident]L.Literal)
	for _, n := range g.Nodes() {
		read, ok := g.Node(n).(*cfg.Read)
		if !ok || read.Var == nil {
			continue
		}
		in, ok := f.In(g, res, n)
		if !ok {
			continue
		}
		if lit, ok := in.Literal(read.Var); ok {
			folds[read.Ident] = lit
		}
	}
	return folds
}

// Package rewrites every function of pkg, each with its own facts.
func Package(pkg *packages.Package) (s rewrite.Stats, err error) {
	f := NewFactory(pkg)
	for _, fun := range pkgutil.Functions(pkg) {
		g := cfg.Build(f.Fset, f.Info, fun.Node)
		stats, err := f.Run(g)
		if err != nil {
			return s, fmt.Errorf("%s: %w", fun, err)
		}
		s.Add(stats)
	}
	return
}

type transformer struct {
	f Factory
}

func (t transformer) Transform(g *cfg.Cfg, res *Result) (rewrite.Stats, error) {
	folds := t.f.Folds(g, res)
	return rewrite.Function(t.f.Fset, t.f.Types, t.f.Info, g.Fun, folds), nil
}
