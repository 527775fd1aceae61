package constprop

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"math"

	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/variable"
)

// Evaluate folds e to a literal under the assumption a. It reports false for
// expressions whose value is unknown, has side effects, or would fault at
// run time. Expressions may be synthesized, in which case they have no type
// information of their own.
func Evaluate(info *types.Info, vars *variable.Table, e ast.Expr, a L.Assumption) (L.Literal, bool) {
	ev := evaluator{info, vars, a}
	return ev.eval(e)
}

type evaluator struct {
	info *types.Info
	vars *variable.Table
	a    L.Assumption
}

func (ev evaluator) eval(e ast.Expr) (L.Literal, bool) {
	if tv, ok := ev.info.Types[e]; ok && tv.Value != nil {
		return L.FromConstant(tv.Value, tv.Type)
	}

	switch e := e.(type) {
	case *ast.ParenExpr:
		return ev.eval(e.X)

	case *ast.Ident:
		obj := ev.info.Uses[e]
		if _, ok := obj.(*types.Nil); ok {
			return L.NilLiteral(ev.info.TypeOf(e)), true
		}
		if v, ok := ev.vars.Lookup(obj); ok {
			return ev.a.Literal(v)
		}

	case *ast.UnaryExpr:
		return ev.unary(e)

	case *ast.BinaryExpr:
		return ev.binary(e)

	case *ast.CallExpr:
		if tv, ok := ev.info.Types[e.Fun]; ok && tv.IsType() && len(e.Args) == 1 {
			x, ok := ev.eval(e.Args[0])
			if !ok {
				return L.Literal{}, false
			}
			return convert(x, tv.Type)
		}
	}

	// Calls, selectors, index and slice expressions, receives, type
	// assertions, composite and function literals.
	return L.Literal{}, false
}

// resultType is the type of e, or the default for comparisons that were
// synthesized.
func (ev evaluator) resultType(e ast.Expr, x L.Literal) types.Type {
	if t := ev.info.TypeOf(e); t != nil {
		return types.Default(t)
	}
	if b, ok := e.(*ast.BinaryExpr); ok && isComparison(b.Op) {
		return types.Typ[types.Bool]
	}
	return x.Type()
}

func (ev evaluator) unary(e *ast.UnaryExpr) (L.Literal, bool) {
	x, ok := ev.eval(e.X)
	if !ok {
		return L.Literal{}, false
	}
	t := ev.resultType(e, x)

	switch e.Op {
	case token.ADD:
		return x, true
	case token.NOT:
		if x.Kind() != L.BoolLit {
			return L.Literal{}, false
		}
		return L.BoolLiteral(!x.Bool(), t), true
	case token.SUB:
		switch x.Kind() {
		case L.IntLit:
			return L.IntLiteral(constant.UnaryOp(token.SUB, x.Value(), 0), t)
		case L.FloatLit:
			return L.FloatLiteral(-x.Float64(), t)
		case L.DoubleLit:
			return L.DoubleLiteral(-x.Float64(), t)
		}
	case token.XOR:
		if x.Kind() != L.IntLit {
			return L.Literal{}, false
		}
		b, ok := t.Underlying().(*types.Basic)
		if !ok {
			return L.Literal{}, false
		}
		var prec uint
		if b.Info()&types.IsUnsigned != 0 {
			if prec = unsignedWidth(b); prec == 0 {
				// The complement depends on the width of uint.
				return L.Literal{}, false
			}
		}
		return L.IntLiteral(constant.UnaryOp(token.XOR, x.Value(), prec), t)
	}
	return L.Literal{}, false
}

func unsignedWidth(b *types.Basic) uint {
	switch b.Kind() {
	case types.Uint8:
		return 8
	case types.Uint16:
		return 16
	case types.Uint32:
		return 32
	case types.Uint64:
		return 64
	}
	return 0
}

func isComparison(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

func (ev evaluator) binary(e *ast.BinaryExpr) (L.Literal, bool) {
	if e.Op == token.LAND || e.Op == token.LOR {
		return ev.logical(e)
	}

	x, ok := ev.eval(e.X)
	if !ok {
		return L.Literal{}, false
	}
	y, ok := ev.eval(e.Y)
	if !ok {
		return L.Literal{}, false
	}
	t := ev.resultType(e, x)

	if isComparison(e.Op) {
		res, ok := compare(e.Op, x, y)
		if !ok {
			return L.Literal{}, false
		}
		return L.BoolLiteral(res, t), true
	}

	if e.Op == token.SHL || e.Op == token.SHR {
		return shift(e.Op, x, y, t)
	}
	return arith(e.Op, x, y, t)
}

// logical folds && and || from left to right, stopping early like the
// program does.
func (ev evaluator) logical(e *ast.BinaryExpr) (L.Literal, bool) {
	x, ok := ev.eval(e.X)
	if !ok || x.Kind() != L.BoolLit {
		return L.Literal{}, false
	}
	t := ev.resultType(e, x)
	if (e.Op == token.LAND) != x.Bool() {
		return L.BoolLiteral(x.Bool(), t), true
	}

	y, ok := ev.eval(e.Y)
	if !ok || y.Kind() != L.BoolLit {
		return L.Literal{}, false
	}
	return L.BoolLiteral(y.Bool(), t), true
}

func compare(op token.Token, x, y L.Literal) (bool, bool) {
	if x.IsNil() || y.IsNil() {
		if op != token.EQL && op != token.NEQ {
			return false, false
		}
		// An interface holding a typed nil is not the nil interface.
		if x.IsNil() && y.IsNil() && !nilConvertible(x, y.Type()) {
			return false, false
		}
		return x.Equal(y) == (op == token.EQL), true
	}
	if x.Kind() != y.Kind() {
		return false, false
	}
	if x.Kind() == L.BoolLit && op != token.EQL && op != token.NEQ {
		return false, false
	}
	return constant.Compare(x.Value(), op, y.Value()), true
}

func shift(op token.Token, x, y L.Literal, t types.Type) (L.Literal, bool) {
	if x.Kind() != L.IntLit || y.Kind() != L.IntLit {
		return L.Literal{}, false
	}
	count, exact := constant.Uint64Val(y.Value())
	if !exact || count >= 64 {
		return L.Literal{}, false
	}
	return L.IntLiteral(constant.Shift(x.Value(), op, uint(count)), t)
}

func arith(op token.Token, x, y L.Literal, t types.Type) (L.Literal, bool) {
	if x.Kind() != y.Kind() {
		return L.Literal{}, false
	}

	switch x.Kind() {
	case L.IntLit:
		switch op {
		case token.QUO, token.REM:
			if y.IsZero() {
				return L.Literal{}, false
			}
			if op == token.QUO {
				// Truncated integer division.
				op = token.QUO_ASSIGN
			}
		case token.ADD, token.SUB, token.MUL, token.AND, token.OR, token.XOR, token.AND_NOT:
		default:
			return L.Literal{}, false
		}
		return L.IntLiteral(constant.BinaryOp(x.Value(), op, y.Value()), t)

	case L.FloatLit, L.DoubleLit:
		a, b := x.Float64(), y.Float64()
		var f float64
		switch op {
		case token.ADD:
			f = a + b
		case token.SUB:
			f = a - b
		case token.MUL:
			f = a * b
		case token.QUO:
			if b == 0 {
				return L.Literal{}, false
			}
			f = a / b
		default:
			return L.Literal{}, false
		}
		if x.Kind() == L.FloatLit {
			return L.FloatLiteral(f, t)
		}
		return L.DoubleLiteral(f, t)

	case L.StringLit:
		if op != token.ADD {
			return L.Literal{}, false
		}
		return L.StringLiteral(constant.StringVal(x.Value())+constant.StringVal(y.Value()), t), true
	}
	return L.Literal{}, false
}

// convert applies a conversion to type t with the semantics of a non-constant
// conversion at run time.
func convert(x L.Literal, t types.Type) (L.Literal, bool) {
	switch variable.KindOf(t) {
	case variable.Int:
		switch x.Kind() {
		case L.IntLit:
			return L.IntLiteral(x.Value(), t)
		case L.FloatLit, L.DoubleLit:
			// Truncation towards zero. Out of range results are implementation
			// specific.
			v := constant.ToInt(constant.MakeFloat64(math.Trunc(x.Float64())))
			res, ok := L.IntLiteral(v, t)
			if !ok || !constant.Compare(res.Value(), token.EQL, v) {
				return L.Literal{}, false
			}
			return res, true
		}

	case variable.Float:
		switch x.Kind() {
		case L.IntLit, L.FloatLit, L.DoubleLit:
			f, _ := constant.Float32Val(constant.ToFloat(x.Value()))
			return L.FloatLiteral(float64(f), t)
		}

	case variable.Double:
		switch x.Kind() {
		case L.IntLit, L.FloatLit, L.DoubleLit:
			f, _ := constant.Float64Val(constant.ToFloat(x.Value()))
			return L.DoubleLiteral(f, t)
		}

	case variable.Bool:
		if x.Kind() == L.BoolLit {
			return x.WithType(t), true
		}

	case variable.String:
		// Conversions from integers produce runes and from slices copy.
		if x.Kind() == L.StringLit {
			return x.WithType(t), true
		}

	case variable.Reference:
		if x.IsNil() && nilConvertible(x, t) {
			return L.NilLiteral(t), true
		}
	}
	return L.Literal{}, false
}

// nilConvertible reports whether the nil literal x is still nil once
// converted to t. A typed nil pointer, slice, map, chan or func converted to
// an interface type is a non-nil interface value.
func nilConvertible(x L.Literal, t types.Type) bool {
	if isUntypedNil(x.Type()) || isUntypedNil(t) {
		return true
	}
	return types.IsInterface(x.Type()) == types.IsInterface(t)
}

func isUntypedNil(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return t == nil || ok && b.Kind() == types.UntypedNil
}
