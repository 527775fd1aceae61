package lattice

// Value is what an Assumption records for a variable: either a literal or
// the NonConstant marker. The zero Value is NonConstant.
type Value struct {
	lit   Literal
	isLit bool
}

// NonConstant marks a variable whose value is known to vary.
var NonConstant = Value{}

// Const lifts a literal into a Value.
func Const(l Literal) Value {
	return Value{l, true}
}

func (v Value) IsConstant() bool {
	return v.isLit
}

// Literal returns the recorded literal, if any.
func (v Value) Literal() (Literal, bool) {
	return v.lit, v.isLit
}

func (v Value) Equal(o Value) bool {
	if v.isLit != o.isLit {
		return false
	}
	return !v.isLit || v.lit.Equal(o.lit)
}

func (v Value) String() string {
	if !v.isLit {
		return "⊤"
	}
	return v.lit.String()
}
