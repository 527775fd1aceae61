package variable

import (
	"go/types"
)

// Kind classifies variables by the literals they may hold.
type Kind uint8

const (
	// Other covers structs, arrays and type parameters. Such variables are
	// never bound to a literal.
	Other Kind = iota
	Int
	Float
	Double
	Bool
	String
	// Reference covers every type with a nil value.
	Reference
	Complex
)

var kindNames = [...]string{
	Other:     "other",
	Int:       "int",
	Float:     "float",
	Double:    "double",
	Bool:      "bool",
	String:    "string",
	Reference: "reference",
	Complex:   "complex",
}

func (k Kind) String() string {
	return kindNames[k]
}

// IsFloating holds for float32 and float64 kinds.
func (k Kind) IsFloating() bool {
	return k == Float || k == Double
}

// KindOf classifies a Go type.
func KindOf(t types.Type) Kind {
	if _, ok := t.(*types.TypeParam); ok {
		return Other
	}

	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case u.Kind() == types.Float32:
			return Float
		case u.Kind() == types.Float64:
			return Double
		case info&types.IsInteger != 0:
			return Int
		case info&types.IsComplex != 0:
			return Complex
		case info&types.IsBoolean != 0:
			return Bool
		case info&types.IsString != 0:
			return String
		case u.Kind() == types.UnsafePointer:
			return Reference
		}
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan,
		*types.Signature, *types.Interface:
		return Reference
	}
	return Other
}

// Variable is the identity of a tracked local or parameter of one function.
// Indices are dense and stable for the function's Table.
type Variable struct {
	Index int
	Obj   *types.Var
	Kind  Kind
	// Param is set for receivers, parameters and named results.
	Param bool
}

func (v *Variable) Name() string {
	return v.Obj.Name()
}

func (v *Variable) Type() types.Type {
	return v.Obj.Type()
}

func (v *Variable) String() string {
	return v.Obj.Name()
}
