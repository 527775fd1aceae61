package rewrite_test

import (
	"bytes"
	"go/ast"
	"go/constant"
	"go/format"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/constprop"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/rewrite"
	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/cs-au-dk/gflow/testutil"

	"golang.org/x/tools/go/packages"
)

func must(l L.Literal, ok bool) L.Literal {
	if !ok {
		panic("not a literal")
	}
	return l
}

func TestExpr(t *testing.T) {
	var (
		temp    = types.NewPackage("example.com/temp", "temp")
		celsius = types.NewNamed(types.NewTypeName(token.NoPos, temp, "Celsius", nil), types.Typ[types.Float64], nil)
		typ     = types.Typ
	)

	tests := []struct {
		lit  L.Literal
		t    types.Type
		want string
	}{
		{must(L.IntLiteral(constant.MakeInt64(5), typ[types.Int])), typ[types.Int], "5"},
		{must(L.IntLiteral(constant.MakeInt64(-5), typ[types.Int])), typ[types.Int], "-5"},
		{must(L.IntLiteral(constant.MakeInt64(5), typ[types.Int8])), typ[types.Int8], "int8(5)"},
		{must(L.DoubleLiteral(1.5, typ[types.Float64])), typ[types.Float64], "1.5"},
		{must(L.DoubleLiteral(-2, typ[types.Float64])), typ[types.Float64], "-2.0"},
		{must(L.FloatLiteral(1.5, typ[types.Float32])), typ[types.Float32], "float32(1.5)"},
		{L.StringLiteral("a\n", typ[types.String]), typ[types.String], `"a\n"`},
		{L.BoolLiteral(true, typ[types.Bool]), typ[types.Bool], "true"},
		{L.NilLiteral(nil), types.NewSlice(typ[types.Int]), "[]int(nil)"},
		{L.NilLiteral(nil), types.NewPointer(typ[types.Int]), "(*int)(nil)"},
		{L.NilLiteral(nil), types.NewSignature(nil, nil, nil, false), "(func())(nil)"},
		{L.NilLiteral(nil), types.Universe.Lookup("error").Type(), "error(nil)"},
		{must(L.DoubleLiteral(3.5, celsius)), celsius, "temp.Celsius(3.5)"},
	}

	byName := func(p *types.Package) string { return p.Name() }
	for _, test := range tests {
		e, err := rewrite.Expr(test.lit, test.t, byName, token.NoPos)
		require.NoError(t, err)
		assert.Equal(t, test.want, types.ExprString(e))
	}

	e, err := rewrite.Expr(must(L.DoubleLiteral(3.5, celsius)), celsius, types.RelativeTo(temp), token.NoPos)
	require.NoError(t, err)
	assert.Equal(t, "Celsius(3.5)", types.ExprString(e))
}

const program = `package main

type Celsius float64

func f(p bool) Celsius {
	var c Celsius = 3.5
	s := []int(nil)
	if p {
		return c
	}
	println(len(s))
	switch v := interface{}(s).(type) {
	case []int:
		x := 1
		println(x, v)
	}
	return 0
}

func main() {
	f(true)
}
`

func rewriteAll(pkg *packages.Package) error {
	f := constprop.NewFactory(pkg)
	for _, fun := range pkgutil.Functions(pkg) {
		g := cfg.Build(pkg.Fset, pkg.TypesInfo, fun.Node)
		if _, err := f.Run(g); err != nil {
			return err
		}
	}
	return nil
}

func TestASTTransform(t *testing.T) {
	pkg := testutil.LoadSource(t, program)
	before := pkg.Types

	require.NoError(t, rewrite.ASTTransform([]*packages.Package{pkg}, rewriteAll))
	assert.NotSame(t, before, pkg.Types, "the package is re-checked")

	var buf bytes.Buffer
	require.NoError(t, format.Node(&buf, pkg.Fset, pkg.Syntax[0]))
	out := buf.String()

	for _, s := range []string{
		"return Celsius(3.5)",
		"println(len([]int(nil)))",
		"interface{}([]int(nil))",
		"println(1, v)",
		"_ = c",
		"_ = x",
	} {
		assert.Contains(t, out, s)
	}

	// Type information describes the new syntax.
	found := false
	ast.Inspect(pkg.Syntax[0], func(n ast.Node) bool {
		if lit, ok := n.(*ast.BasicLit); ok && lit.Value == "3.5" {
			_, found = pkg.TypesInfo.Types[lit]
		}
		return true
	})
	assert.True(t, found, "no type information for the substituted literal")
}

func TestASTTransformIllTyped(t *testing.T) {
	pkg := testutil.LoadSource(t, program)

	err := rewrite.ASTTransform([]*packages.Package{pkg}, func(pkg *packages.Package) error {
		ast.Inspect(pkg.Syntax[0], func(n ast.Node) bool {
			// The declaration of c stays, so only its uses become undefined.
			if id, ok := n.(*ast.Ident); ok && id.Name == "c" && pkg.TypesInfo.Uses[id] != nil {
				id.Name = "undefined"
			}
			return true
		})
		return nil
	})
	assert.ErrorIs(t, err, rewrite.ErrIllTyped)
}

func TestExprPositions(t *testing.T) {
	pos := token.Pos(42)
	e, err := rewrite.Expr(L.NilLiteral(nil), types.NewMap(types.Typ[types.String], types.NewPointer(types.Typ[types.Int])), nil, pos)
	require.NoError(t, err)

	ast.Inspect(e, func(n ast.Node) bool {
		if n != nil {
			assert.Equal(t, pos, n.Pos(), "%T", n)
		}
		return true
	})
}

const qualified = `package main

import (
	tok "go/token"
	"time"
)

func f() (tok.Pos, time.Duration) {
	p := tok.Pos(3)
	d := time.Duration(2)
	return p, d
}

func main() {
	f()
}
`

func TestQualifier(t *testing.T) {
	pkg := testutil.LoadSource(t, qualified)
	fun := testutil.Function(t, pkg, "f")

	qf := rewrite.Qualifier(pkg.Types, fun.Node.Pos())
	for _, imp := range pkg.Types.Imports() {
		if imp.Path() == "go/token" {
			assert.Equal(t, "tok", qf(imp))
		}
	}
	assert.Equal(t, "", qf(pkg.Types))

	require.NoError(t, rewrite.ASTTransform([]*packages.Package{pkg}, rewriteAll))

	var buf bytes.Buffer
	require.NoError(t, format.Node(&buf, pkg.Fset, pkg.Syntax[0]))
	assert.Contains(t, buf.String(), "return tok.Pos(3), time.Duration(2)")
}

func TestFunctionNothingToDo(t *testing.T) {
	pkg := testutil.LoadSource(t, program)
	fun := testutil.Function(t, pkg, "main")
	stats := rewrite.Function(pkg.Fset, pkg.Types, pkg.TypesInfo, fun.Node, nil)
	assert.Equal(t, rewrite.Stats{}, stats)
}
