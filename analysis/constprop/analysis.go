// Package constprop instantiates the dataflow framework as constant
// propagation with conditional constant folding. Facts are assumptions about
// the tracked variables of a function; conditions strengthen the facts on
// their branches.
package constprop

import (
	"errors"
	"fmt"
	"go/types"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/flow"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
)

var errUnknownNode = errors.New("unknown node type")

// analysis is the flow function set of constant propagation.
type analysis struct {
	info *types.Info
}

var _ flow.Analysis[cfg.NodeID, cfg.EdgeID, *cfg.Cfg, L.Assumption] = analysis{}

// Initial knows nothing about locals, and that parameters are not constant.
func (analysis) Initial(g *cfg.Cfg) L.Assumption {
	a := L.Unconstrained()
	for _, v := range g.Vars.Params() {
		a = a.Set(v, L.NonConstant)
	}
	return a
}

func (analysis) Join(a, b L.Assumption) L.Assumption {
	return a.Join(b)
}

func (analysis) Equal(a, b L.Assumption) bool {
	return a.Equal(b)
}

func (analysis) Height(g *cfg.Cfg) int {
	return L.Height(g.Vars.Len())
}

func (an analysis) Interpret(g *cfg.Cfg, id cfg.NodeID, in L.Assumption) []L.Assumption {
	outs := g.OutEdges(id)
	same := func() []L.Assumption {
		res := make([]L.Assumption, len(outs))
		for i := range res {
			res[i] = in
		}
		return res
	}

	switch n := g.Node(id).(type) {
	case *cfg.Write:
		if n.Var == nil {
			return same()
		}
		return []L.Assumption{in.Set(n.Var, an.written(g, n, in))}

	case *cfg.ReadWrite:
		if n.Var == nil {
			return same()
		}
		return []L.Assumption{in.Set(n.Var, L.NonConstant)}

	case *cfg.Cond:
		if n.Range {
			return same()
		}
		res := make([]L.Assumption, len(outs))
		for i, e := range outs {
			switch g.Edge(e).Label {
			case cfg.Then:
				res[i] = Deduce(an.info, g.Vars, n.Expr, true, in)
			case cfg.Else:
				res[i] = Deduce(an.info, g.Vars, n.Expr, false, in)
			default:
				res[i] = in
			}
		}
		return res

	case *cfg.OptThrow, *cfg.Throw,
		*cfg.Read, *cfg.Call, *cfg.Block, *cfg.Stmt, *cfg.Goto:
		return same()

	case *cfg.End:
		return nil
	}
	panic(fmt.Errorf("%w: %T", errUnknownNode, g.Node(id)))
}

// written is the value stored by a write to a tracked variable.
func (an analysis) written(g *cfg.Cfg, n *cfg.Write, in L.Assumption) L.Value {
	var (
		lit L.Literal
		ok  bool
	)
	switch n.Init {
	case cfg.WriteExpr:
		lit, ok = Evaluate(an.info, g.Vars, n.Value, in)
	case cfg.WriteZero:
		lit, ok = L.Zero(n.Var.Type())
	}
	if !ok {
		return L.NonConstant
	}
	if lit, ok = retype(lit, n.Var); !ok {
		return L.NonConstant
	}
	return L.Const(lit)
}
