package rewrite

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"

	L "github.com/cs-au-dk/gflow/analysis/lattice"
)

// defaultTypes are the types an untyped literal of each kind assumes.
var defaultTypes = map[L.LiteralKind]types.Type{
	L.IntLit:    types.Typ[types.Int],
	L.DoubleLit: types.Typ[types.Float64],
	L.BoolLit:   types.Typ[types.Bool],
	L.StringLit: types.Typ[types.String],
}

// Expr builds an expression of type t with the value of lit. The literal is
// left untyped when t is the default type of its kind, and converted to t
// otherwise. Nil is always converted, so the expression has a type. Types
// from other packages are qualified by qf. Every node of the expression is
// placed at pos, the position of the syntax it replaces.
func Expr(lit L.Literal, t types.Type, qf types.Qualifier, pos token.Pos) (ast.Expr, error) {
	val := untyped(lit)
	if def, ok := defaultTypes[lit.Kind()]; ok && types.Identical(def, t) {
		return place(val, pos), nil
	}

	typ, err := TypeExpr(t, qf)
	if err != nil {
		return nil, err
	}
	return place(&ast.CallExpr{Fun: typ, Args: []ast.Expr{val}}, pos), nil
}

// Qualifier names the packages of types as the file enclosing pos imports
// them. Types of pkg itself are unqualified. A package the file does not
// import is named by its package name, which the type checks on rewritten
// expressions then reject.
func Qualifier(pkg *types.Package, pos token.Pos) types.Qualifier {
	file := pkg.Scope().Innermost(pos)
	for file != nil && file.Parent() != pkg.Scope() {
		file = file.Parent()
	}

	return func(p *types.Package) string {
		if p == pkg {
			return ""
		}
		if file != nil {
			for _, name := range file.Names() {
				if pn, ok := file.Lookup(name).(*types.PkgName); ok && pn.Imported() == p {
					return name
				}
			}
		}
		return p.Name()
	}
}

// place moves all nodes of e to pos, so the printer keeps the expression on
// the line of the syntax it replaces.
func place(e ast.Expr, pos token.Pos) ast.Expr {
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			n.NamePos = pos
		case *ast.BasicLit:
			n.ValuePos = pos
		case *ast.UnaryExpr:
			n.OpPos = pos
		case *ast.CallExpr:
			n.Lparen, n.Rparen = pos, pos
		case *ast.ParenExpr:
			n.Lparen, n.Rparen = pos, pos
		case *ast.StarExpr:
			n.Star = pos
		case *ast.ArrayType:
			n.Lbrack = pos
		case *ast.MapType:
			n.Map = pos
		case *ast.ChanType:
			n.Begin = pos
			if n.Arrow.IsValid() {
				n.Arrow = pos
			}
		case *ast.FuncType:
			n.Func = pos
		case *ast.InterfaceType:
			n.Interface = pos
		case *ast.StructType:
			n.Struct = pos
		case *ast.FieldList:
			n.Opening, n.Closing = pos, pos
		case *ast.IndexExpr:
			n.Lbrack, n.Rbrack = pos, pos
		case *ast.IndexListExpr:
			n.Lbrack, n.Rbrack = pos, pos
		}
		return true
	})
	return e
}

func untyped(lit L.Literal) ast.Expr {
	var kind token.Token
	switch lit.Kind() {
	case L.IntLit:
		kind = token.INT
	case L.FloatLit, L.DoubleLit:
		kind = token.FLOAT
	case L.StringLit:
		kind = token.STRING
	case L.BoolLit, L.NilLit:
		return ast.NewIdent(lit.String())
	}

	s := lit.String()
	if neg := strings.TrimPrefix(s, "-"); neg != s {
		return &ast.UnaryExpr{Op: token.SUB, X: &ast.BasicLit{Kind: kind, Value: neg}}
	}
	return &ast.BasicLit{Kind: kind, Value: s}
}

// TypeExpr renders t as an expression usable as the function of a
// conversion. Types that would not parse in that position, like *T or
// func(), are parenthesized.
func TypeExpr(t types.Type, qf types.Qualifier) (ast.Expr, error) {
	s := types.TypeString(t, qf)
	e, err := parser.ParseExpr(s)
	if err != nil {
		return nil, err
	}
	switch t.(type) {
	case *types.Pointer, *types.Signature, *types.Chan:
		return &ast.ParenExpr{X: e}, nil
	}
	return e, nil
}
