package constprop

import (
	"go/ast"
	"go/token"
	"go/types"

	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/variable"
)

// Deduce strengthens base with what is known on the branch where cond
// evaluated to outcome. Only tracked variables compared against foldable
// operands, and tracked boolean variables, are refined. && and || are
// refined operand by operand when both operands are known to have the
// outcome of the whole condition.
func Deduce(info *types.Info, vars *variable.Table, cond ast.Expr, outcome bool, base L.Assumption) L.Assumption {
	if base.IsNone() {
		return base
	}
	d := deducer{info, vars, base}
	return d.deduce(cond, outcome)
}

type deducer struct {
	info *types.Info
	vars *variable.Table
	base L.Assumption
}

func (d deducer) deduce(cond ast.Expr, outcome bool) L.Assumption {
	switch e := cond.(type) {
	case *ast.ParenExpr:
		return d.deduce(e.X, outcome)

	case *ast.UnaryExpr:
		if e.Op == token.NOT {
			return d.deduce(e.X, !outcome)
		}

	case *ast.Ident:
		if v, ok := d.vars.Lookup(d.info.Uses[e]); ok && v.Kind == variable.Bool {
			return d.base.Set(v, L.Const(L.BoolLiteral(outcome, v.Type())))
		}

	case *ast.BinaryExpr:
		switch e.Op {
		case token.LAND:
			if outcome {
				return d.merge(d.deduce(e.X, true), d.deduce(e.Y, true))
			}
		case token.LOR:
			if !outcome {
				return d.merge(d.deduce(e.X, false), d.deduce(e.Y, false))
			}
		case token.EQL, token.NEQ:
			if (e.Op == token.EQL) == outcome {
				return d.equal(e.X, e.Y)
			}
		}
	}
	return d.base
}

// equal refines the variable on one side of a comparison known to hold with
// the value of the other side.
func (d deducer) equal(x, y ast.Expr) L.Assumption {
	if a, ok := d.pin(x, y); ok {
		return a
	}
	if a, ok := d.pin(y, x); ok {
		return a
	}
	return d.base
}

func (d deducer) pin(x, y ast.Expr) (L.Assumption, bool) {
	id, ok := unparen(x).(*ast.Ident)
	if !ok {
		return L.Assumption{}, false
	}
	v, ok := d.vars.Lookup(d.info.Uses[id])
	if !ok {
		return L.Assumption{}, false
	}

	lit, ok := Evaluate(d.info, d.vars, y, d.base)
	if !ok {
		return L.Assumption{}, false
	}
	// The IEEE zeros compare equal but are different values.
	if v.Kind.IsFloating() && lit.IsZero() {
		return L.Assumption{}, false
	}
	lit, ok = retype(lit, v)
	if !ok {
		return L.Assumption{}, false
	}
	return d.base.Set(v, L.Const(lit)), true
}

// merge combines the refinements of two operands. A variable refined by both
// to different values is dropped, as a join would.
func (d deducer) merge(a, b L.Assumption) L.Assumption {
	res := d.base
	a.ForEach(func(v *variable.Variable, av L.Value) {
		if !d.refines(v, av) {
			return
		}
		if bv, ok := b.Get(v); ok && d.refines(v, bv) && !bv.Equal(av) {
			res = res.Remove(v)
			return
		}
		res = res.Set(v, av)
	})
	b.ForEach(func(v *variable.Variable, bv L.Value) {
		if !d.refines(v, bv) {
			return
		}
		if av, ok := a.Get(v); ok && d.refines(v, av) {
			// Merged above.
			return
		}
		res = res.Set(v, bv)
	})
	return res
}

// refines reports whether val is new information about v.
func (d deducer) refines(v *variable.Variable, val L.Value) bool {
	base, ok := d.base.Get(v)
	return !ok || !base.Equal(val)
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

// retype gives a literal the type of the variable it is stored in. Literals
// of a different shape, like a non-nil value or a typed nil stored in an
// interface, are rejected.
func retype(lit L.Literal, v *variable.Variable) (L.Literal, bool) {
	var want L.LiteralKind
	switch v.Kind {
	case variable.Int:
		want = L.IntLit
	case variable.Float:
		want = L.FloatLit
	case variable.Double:
		want = L.DoubleLit
	case variable.Bool:
		want = L.BoolLit
	case variable.String:
		want = L.StringLit
	case variable.Reference:
		want = L.NilLit
	default:
		return L.Literal{}, false
	}
	if lit.Kind() != want {
		return L.Literal{}, false
	}
	if want == L.NilLit && !nilConvertible(lit, v.Type()) {
		return L.Literal{}, false
	}
	return lit.WithType(v.Type()), true
}
