package lattice

import (
	"go/constant"
	"go/token"
	"go/types"
	"math"
	"strconv"
	"strings"

	"github.com/cs-au-dk/gflow/analysis/variable"
)

// LiteralKind distinguishes the shapes of constant values a variable may be
// pinned to.
type LiteralKind uint8

const (
	IntLit LiteralKind = iota
	// FloatLit holds float32 values, rounded to float32 precision.
	FloatLit
	DoubleLit
	BoolLit
	StringLit
	NilLit
)

var literalKindNames = [...]string{
	IntLit:    "int",
	FloatLit:  "float",
	DoubleLit: "double",
	BoolLit:   "bool",
	StringLit: "string",
	NilLit:    "nil",
}

func (k LiteralKind) String() string {
	return literalKindNames[k]
}

// Literal is an immutable constant value of a specific Go type.
// Equality compares kind and value, the carried type is informative.
type Literal struct {
	kind LiteralKind
	// val is nil for nil literals.
	val constant.Value
	typ types.Type
}

// Machine independent bounds for int, uint and uintptr literals.
var (
	minPortableInt  = constant.MakeInt64(math.MinInt32)
	maxPortableInt  = constant.MakeInt64(math.MaxInt32)
	maxPortableUint = constant.MakeUint64(math.MaxUint32)
)

// intWidth returns the bit width and signedness of a sized integer type.
// Platform dependent types report width 0.
func intWidth(b *types.Basic) (width uint, signed bool) {
	switch b.Kind() {
	case types.Int8:
		return 8, true
	case types.Int16:
		return 16, true
	case types.Int32:
		return 32, true
	case types.Int64:
		return 64, true
	case types.Uint8:
		return 8, false
	case types.Uint16:
		return 16, false
	case types.Uint32:
		return 32, false
	case types.Uint64:
		return 64, false
	case types.Int, types.UntypedInt, types.UntypedRune:
		return 0, true
	}
	return 0, false
}

// wrap reduces v modulo 2^width, reinterpreting the result as signed if needed.
func wrap(v constant.Value, width uint, signed bool) constant.Value {
	modulus := constant.Shift(constant.MakeInt64(1), token.SHL, width)
	v = constant.BinaryOp(v, token.REM, modulus)
	if constant.Sign(v) < 0 {
		v = constant.BinaryOp(v, token.ADD, modulus)
	}
	if signed {
		half := constant.Shift(constant.MakeInt64(1), token.SHL, width-1)
		if constant.Compare(v, token.GEQ, half) {
			v = constant.BinaryOp(v, token.SUB, modulus)
		}
	}
	return v
}

// IntLiteral builds an integer literal of type t, wrapping v to the width of
// t. Results of int, uint and uintptr type must fit 32 bits, since their
// width depends on the target.
func IntLiteral(v constant.Value, t types.Type) (Literal, bool) {
	v = constant.ToInt(v)
	if v.Kind() != constant.Int {
		return Literal{}, false
	}

	b, ok := t.Underlying().(*types.Basic)
	if !ok || b.Info()&types.IsInteger == 0 {
		return Literal{}, false
	}

	if width, signed := intWidth(b); width > 0 {
		v = wrap(v, width, signed)
	} else if signed {
		if constant.Compare(v, token.LSS, minPortableInt) || constant.Compare(v, token.GTR, maxPortableInt) {
			return Literal{}, false
		}
	} else if constant.Sign(v) < 0 || constant.Compare(v, token.GTR, maxPortableUint) {
		return Literal{}, false
	}

	return Literal{IntLit, v, t}, true
}

// isRepresentableFloat rejects the values that have no literal form in Go
// source, or that would conflate the two IEEE zeros.
func isRepresentableFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && !(f == 0 && math.Signbit(f))
}

// FloatLiteral builds a float32 literal. The value is rounded to float32.
func FloatLiteral(f float64, t types.Type) (Literal, bool) {
	f = float64(float32(f))
	if !isRepresentableFloat(f) {
		return Literal{}, false
	}
	return Literal{FloatLit, constant.MakeFloat64(f), t}, true
}

// DoubleLiteral builds a float64 literal.
func DoubleLiteral(f float64, t types.Type) (Literal, bool) {
	if !isRepresentableFloat(f) {
		return Literal{}, false
	}
	return Literal{DoubleLit, constant.MakeFloat64(f), t}, true
}

func BoolLiteral(b bool, t types.Type) Literal {
	return Literal{BoolLit, constant.MakeBool(b), t}
}

func StringLiteral(s string, t types.Type) Literal {
	return Literal{StringLit, constant.MakeString(s), t}
}

// NilLiteral is the nil value of a pointer, slice, map, channel, function or
// interface type.
func NilLiteral(t types.Type) Literal {
	return Literal{NilLit, nil, t}
}

// FromConstant converts a constant known to the type checker into a literal
// of type t. Untyped types are replaced by their default type.
func FromConstant(v constant.Value, t types.Type) (Literal, bool) {
	if v == nil || t == nil {
		return Literal{}, false
	}
	t = types.Default(t)

	switch variable.KindOf(t) {
	case variable.Int:
		return IntLiteral(v, t)
	case variable.Float:
		f, _ := constant.Float64Val(constant.ToFloat(v))
		return FloatLiteral(f, t)
	case variable.Double:
		f, _ := constant.Float64Val(constant.ToFloat(v))
		return DoubleLiteral(f, t)
	case variable.Bool:
		if v.Kind() != constant.Bool {
			return Literal{}, false
		}
		return BoolLiteral(constant.BoolVal(v), t), true
	case variable.String:
		if v.Kind() != constant.String {
			return Literal{}, false
		}
		return StringLiteral(constant.StringVal(v), t), true
	}
	return Literal{}, false
}

// Zero returns the zero value of t as a literal, if t has one.
func Zero(t types.Type) (Literal, bool) {
	switch variable.KindOf(t) {
	case variable.Int:
		return IntLiteral(constant.MakeInt64(0), t)
	case variable.Float:
		return FloatLiteral(0, t)
	case variable.Double:
		return DoubleLiteral(0, t)
	case variable.Bool:
		return BoolLiteral(false, t), true
	case variable.String:
		return StringLiteral("", t), true
	case variable.Reference:
		return NilLiteral(t), true
	}
	return Literal{}, false
}

func (l Literal) Kind() LiteralKind {
	return l.kind
}

func (l Literal) Type() types.Type {
	return l.typ
}

// Value returns the exact constant. It is nil for nil literals.
func (l Literal) Value() constant.Value {
	return l.val
}

func (l Literal) IsNil() bool {
	return l.kind == NilLit
}

// IsZero holds for numeric zero literals.
func (l Literal) IsZero() bool {
	switch l.kind {
	case IntLit, FloatLit, DoubleLit:
		return constant.Sign(l.val) == 0
	}
	return false
}

// Bool returns the value of a boolean literal.
func (l Literal) Bool() bool {
	return l.kind == BoolLit && constant.BoolVal(l.val)
}

// Float64 returns the value of a floating point literal.
func (l Literal) Float64() float64 {
	f, _ := constant.Float64Val(constant.ToFloat(l.val))
	return f
}

// WithType retypes the literal, keeping its value.
func (l Literal) WithType(t types.Type) Literal {
	l.typ = t
	return l
}

// Equal compares literals by kind and value.
func (l Literal) Equal(o Literal) bool {
	if l.kind != o.kind {
		return false
	}
	if l.kind == NilLit {
		return true
	}
	return constant.Compare(l.val, token.EQL, o.val)
}

// String renders the literal in Go syntax, without its type.
func (l Literal) String() string {
	switch l.kind {
	case IntLit:
		return l.val.ExactString()
	case FloatLit:
		return floatString(l.Float64(), 32)
	case DoubleLit:
		return floatString(l.Float64(), 64)
	case BoolLit:
		return strconv.FormatBool(constant.BoolVal(l.val))
	case StringLit:
		return strconv.Quote(constant.StringVal(l.val))
	case NilLit:
		return "nil"
	}
	panic(errInternal)
}

// floatString renders f so that it always reads back as a floating point
// constant.
func floatString(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
