package constprop_test

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/constprop"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/testutil"
)

type fixture struct {
	t   *testing.T
	f   constprop.Factory
	g   *cfg.Cfg
	res *constprop.Result
}

func solve(t *testing.T, src string) fixture {
	t.Helper()
	pkg := testutil.LoadSource(t, src)
	fun := testutil.Function(t, pkg, "f")
	g := cfg.Build(pkg.Fset, pkg.TypesInfo, fun.Node)

	f := constprop.NewFactory(pkg)
	res, err := f.Solve(g)
	require.NoError(t, err)
	return fixture{t, f, g, res}
}

// node finds the last node whose trace line starts with prefix.
func (fx fixture) node(prefix string) cfg.NodeID {
	fx.t.Helper()
	found := cfg.NodeID(-1)
	for _, n := range fx.g.Nodes() {
		if strings.HasPrefix(fx.g.Node(n).String(), prefix) {
			found = n
		}
	}
	require.NotEqual(fx.t, cfg.NodeID(-1), found, "no node %s", prefix)
	return found
}

func (fx fixture) in(n cfg.NodeID) L.Assumption {
	fx.t.Helper()
	a, ok := fx.f.In(fx.g, fx.res, n)
	require.True(fx.t, ok, "node %s was not reached", fx.g.Node(n))
	return a
}

// branches returns the facts on the THEN and ELSE edges of n.
func (fx fixture) branches(n cfg.NodeID) (then, els string) {
	for _, e := range fx.g.OutEdges(n) {
		a, _ := fx.res.Fact(e)
		switch fx.g.Edge(e).Label {
		case cfg.Then:
			then = a.String()
		case cfg.Else:
			els = a.String()
		}
	}
	return
}

// value renders what the fact at END records for the named variable.
func (fx fixture) value(name string) string {
	fx.t.Helper()
	end := fx.in(fx.g.End())
	for _, v := range fx.g.Vars.Vars() {
		if v.Name() == name {
			if val, ok := end.Get(v); ok {
				return val.String()
			}
			return ""
		}
	}
	fx.t.Fatalf("no variable %s", name)
	return ""
}

func TestPrintFacts(t *testing.T) {
	fx := solve(t, `package main

	func f() int {
		i := 1
		j := i
		return j
	}`)

	want := `BLOCK -> [* T]
STMT -> [* T]
WRITE(i, 1) -> [* {i=1}]
STMT -> [* {i=1}]
READ(i) -> [* {i=1}]
WRITE(j, i) -> [* {i=1, j=1}]
STMT -> [* {i=1, j=1}]
READ(j) -> [* {i=1, j=1}]
GOTO -> [* {i=1, j=1}]
END
`
	assert.Equal(t, want, constprop.Print(fx.g, fx.res))
}

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"truncated division", "a := 7; b := 2; r := a / b", "3"},
		{"negative remainder", "a := -7; b := 2; r := a % b", "-1"},
		{"division by zero", "a := 1; b := 0; r := a / b", "⊤"},
		{"int8 wraps", "var a int8 = 127; r := a + 1", "-128"},
		{"uint8 wraps", "var a uint8 = 200; r := a + 100", "44"},
		{"int beyond 32 bits", "a := 1 << 20; r := a * a * a", "⊤"},
		{"double", "a := 2.5; r := a * 2", "5.0"},
		{"float", "var a float32 = 1.5; r := a * 3", "4.5"},
		{"negative zero", "a := 0.0; r := -a", "⊤"},
		{"string concatenation", `s := "ab"; r := s + "c"`, `"abc"`},
		{"comparison", "a := 3; r := a < 5", "true"},
		{"logical", "a := 3; r := a == 3 || a == 4", "true"},
		{"short circuit", "a := 0; r := a > 1 && p", "false"},
		{"unknown operand", "a := 2; r := a > 1 && p", "⊤"},
		// Both branches of the short circuit are taken, and b is forgotten.
		{"deduced bool", "b := false; r := b && p", "⊤"},
		{"shift", "a := 1; n := 3; r := a << n", "8"},
		{"shift too far", "a := 1; n := 70; r := a << n", "⊤"},
		{"float to int", "a := 3.9; r := int(a)", "3"},
		{"float to int8", "a := -3.9; r := int8(a)", "-3"},
		{"int to int8", "a := 300; r := int8(a)", "44"},
		{"float out of range", "a := 1e10; r := int(a)", "⊤"},
		{"int to double", "a := 3; r := float64(a) / 2", "1.5"},
		{"uint8 complement", "var a uint8 = 1; r := ^a", "254"},
		{"uint complement", "var a uint = 1; r := ^a", "⊤"},
		{"nil comparison", "var q *int; r := q == nil", "true"},
		{"nil interface", "var e interface{}; r := e == nil", "true"},
		{"typed nil in interface", "var q *int; var e interface{} = q; r := e != nil", "⊤"},
		{"typed nil converted", "var q *int; r := interface{}(q) == nil", "⊤"},
		{"zero value", "var r string", `""`},
		{"call", "var s []int; r := len(s)", "⊤"},
		{"parameter", "r := p", "⊤"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fx := solve(t, `package main

			func f(p bool) {
				`+test.body+`
				_ = r
			}`)
			assert.Equal(t, test.want, fx.value("r"))
		})
	}
}

func TestDeduce(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		then, els string
	}{
		{"bool", "func f(b bool) { if b {} }", "{b=true}", "{b=false}"},
		{"negation", "func f(b bool) { if !b {} }", "{b=false}", "{b=true}"},
		{"equal", "func f(i int) { if i == 10 {} }", "{i=10}", "{i=⊤}"},
		{"reversed operands", "func f(i int) { if 10 == i {} }", "{i=10}", "{i=⊤}"},
		{"not equal", "func f(i int) { if i != 3 {} }", "{i=⊤}", "{i=3}"},
		{"sized int", "func f(i int8) { if i == 3 {} }", "{i=3}", "{i=⊤}"},
		{"double zero", "func f(x float64) { if x == 0.0 {} }", "{x=⊤}", "{x=⊤}"},
		{"double", "func f(x float64) { if x == 1.5 {} }", "{x=1.5}", "{x=⊤}"},
		{"string", `func f(s string) { if s == "a" {} }`, `{s="a"}`, "{s=⊤}"},
		{"nil slice", "func f(s []int) { if s == nil {} }", "{s=nil}", "{s=⊤}"},
		{"nil pointer", "func f(p *int) { if nil != p {} }", "{p=⊤}", "{p=nil}"},
		{"nil error", "func f(e error) { if e == nil {} }", "{e=nil}", "{e=⊤}"},
		{"two variables", "func f(i, j int) { if i == j {} }", "{i=⊤, j=⊤}", "{i=⊤, j=⊤}"},
		{"interface and int", "func f(x interface{}) { if x == 1 {} }", "{x=⊤}", "{x=⊤}"},
		{"parentheses", "func f(i int) { if (i == 2) {} }", "{i=2}", "{i=⊤}"},
		// The join at the outer condition forgets i.
		{"and", "func f(i, j int) { if i == 1 && j == 2 {} }", "{i=1, j=2}", "{j=⊤}"},
		{"and conflicting", "func f(i int) { if i == 1 && i == 2 {} }", "T", "T"},
		{"and conflicting over a known value", "func f() { i := 0; if i == 1 && i == 2 {} }", "T", "{i=0}"},
		{"typed nil against interface", "func f(x interface{}) { var p *int; if x == p {} }", "{x=⊤, p=nil}", "{x=⊤, p=nil}"},
		{"or", "func f(i, j int) { if i != 1 || j != 2 {} }", "{j=⊤}", "{i=1, j=2}"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fx := solve(t, "package main\n\n"+test.src)
			then, els := fx.branches(fx.node("COND"))
			assert.Equal(t, test.then, then, "THEN")
			assert.Equal(t, test.els, els, "ELSE")
		})
	}
}

func TestLoop(t *testing.T) {
	fx := solve(t, `package main

	func f() {
		j := 1
		for j > 0 {
			j++
		}
	}`)

	header := fx.node("READ(j)")
	assert.Equal(t, "T", fx.in(header).String(), "the loop header forgets j")

	rw := fx.node("READWRITE(j, ++)")
	out, ok := fx.res.Fact(fx.g.OutEdges(rw)[0])
	require.True(t, ok)
	assert.Equal(t, "{j=⊤}", out.String())

	assert.Empty(t, fx.f.Folds(fx.g, fx.res), "no read in the loop is constant")
}

func TestUnreachableRead(t *testing.T) {
	fx := solve(t, `package main

	func f() int {
		x := 1
		return x
		return x + 1
	}`)

	folds := fx.f.Folds(fx.g, fx.res)
	assert.Len(t, folds, 1, "only the reachable read folds")
}

func TestExport(t *testing.T) {
	fx := solve(t, `package main

	func f(p int) int {
		i := 1
		return i + p
	}`)

	var buf bytes.Buffer
	require.NoError(t, constprop.Export(&buf, []constprop.FunctionFacts{
		constprop.Facts("f", fx.g, fx.res),
	}))

	facts, err := constprop.Import(&buf)
	require.NoError(t, err)
	require.Len(t, facts, 1)

	ff := facts[0]
	assert.Equal(t, "f", ff.Function)
	assert.Equal(t, fx.res.Visits, ff.Visits)
	assert.Equal(t, fx.g.Len(), len(ff.Nodes))
	assert.Equal(t, "END", ff.Nodes[len(ff.Nodes)-1])
	assert.Len(t, ff.Edges, fx.res.Len())

	last := ff.Edges[len(ff.Edges)-1]
	assert.Equal(t, []constprop.VarFact{
		{Index: 0, Name: "p"},
		{Index: 1, Name: "i", Value: "1"},
	}, last.Vars)
}

func TestImportGarbage(t *testing.T) {
	_, err := constprop.Import(strings.NewReader("not msgpack"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stats string
		want  []string
	}{
		{
			"copy",
			`package main

			func f() int {
				i := 1
				j := i
				return j
			}`,
			"2/0/2",
			[]string{"j := 1", "return 1", "_ = i", "_ = j"},
		},
		{
			"reassignment",
			`package main

			func f() int {
				i := 1
				i = i + 1
				j := i
				return j
			}`,
			"3/0/2",
			[]string{"i = 1 + 1", "j := 2", "return 2"},
		},
		{
			"branch",
			`package main

			func f(i int) int {
				if i == 10 {
					return i
				}
				return i
			}`,
			"1/0/0",
			[]string{"return 10", "return i"},
		},
		{
			"overflow",
			`package main

			func f() int8 {
				var a int8 = 100
				b := a * 2
				return b
			}`,
			"1/1/1",
			[]string{"b := a * 2", "return int8(-56)", "_ = b"},
		},
		{
			"division by zero",
			`package main

			func f() int {
				z := 0
				n := 10
				return n / z
			}`,
			"1/1/1",
			[]string{"return 10 / z", "_ = n"},
		},
		{
			"switch case",
			`package main

			func f() int {
				a := 1
				switch 1 {
				case a:
					return a
				}
				return 0
			}`,
			"1/0/0",
			[]string{"case a:", "return 1"},
		},
		{
			"typed nil in interface",
			`package main

			type E struct{}

			func (*E) Error() string { return "E" }

			func f() bool {
				var p *E
				var e error = p
				return e != nil
			}`,
			"1/0/1",
			[]string{"var e error = (*E)(nil)", "return e != nil", "_ = p"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pkg := testutil.LoadSource(t, test.src)
			fun := testutil.Function(t, pkg, "f")
			g := cfg.Build(pkg.Fset, pkg.TypesInfo, fun.Node)

			stats, err := constprop.NewFactory(pkg).Run(g)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, format.Node(&buf, pkg.Fset, fun.Node))
			out := buf.String()

			got := fmt.Sprintf("%d/%d/%d", stats.Substituted, stats.Rejected, stats.KeptAlive)
			assert.Equal(t, test.stats, got, "substituted/rejected/kept alive in\n%s", out)
			for _, s := range test.want {
				assert.Contains(t, out, s)
			}
		})
	}
}
