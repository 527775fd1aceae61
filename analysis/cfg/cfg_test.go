package cfg_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/cs-au-dk/gflow/testutil"

	"github.com/sebdah/goldie/v2"
)

func trimTrace(s string) string {
	return strings.TrimSpace(s) + "\n"
}

func TestTrace(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		trace string
	}{
		{
			"if",
			`package main

			func f(a int) int {
				x := 1
				if a > x {
					x = 2
				}
				return x
			}`,
			`
BLOCK -> [*]
STMT -> [*]
WRITE(x, 1) -> [*]
STMT -> [*]
READ(a) -> [*]
READ(x) -> [*]
COND (a > x) -> [THEN=*, ELSE=1]
BLOCK -> [*]
STMT -> [*]
WRITE(x, 2) -> [*]
1: STMT -> [*]
READ(x) -> [*]
GOTO -> [*]
END`,
		},
		{
			"for",
			`package main

			func f() {
				j := 1
				for j > 0 {
					j++
				}
			}`,
			`
BLOCK -> [*]
STMT -> [*]
WRITE(j, 1) -> [*]
STMT -> [*]
1: READ(j) -> [*]
COND (j > 0) -> [THEN=*, ELSE=2]
BLOCK -> [*]
STMT -> [*]
READWRITE(j, ++) -> [1]
2: END`,
		},
		{
			"and",
			`package main

			func g() {}

			func f(a, b bool) {
				if a && b {
					g()
				}
			}`,
			`
BLOCK -> [*]
STMT -> [*]
READ(a) -> [*]
COND (a) -> [THEN=*, ELSE=1]
READ(b) -> [*]
1: COND (a && b) -> [THEN=*, ELSE=2]
BLOCK -> [*]
STMT -> [*]
OPTTHROW(g()) -> [NOTHROW=*, RE=2]
CALL(g) -> [*]
2: END`,
		},
		{
			"or",
			`package main

			func g() {}

			func f(a, b bool) {
				if a || b {
					g()
				}
			}`,
			`
BLOCK -> [*]
STMT -> [*]
READ(a) -> [*]
COND (a) -> [ELSE=*, THEN=1]
READ(b) -> [*]
1: COND (a || b) -> [THEN=*, ELSE=2]
BLOCK -> [*]
STMT -> [*]
OPTTHROW(g()) -> [NOTHROW=*, RE=2]
CALL(g) -> [*]
2: END`,
		},
		{
			"range",
			`package main

			func f(xs []int) (s int) {
				for _, x := range xs {
					s += x
				}
				return
			}`,
			`
BLOCK -> [*]
STMT -> [*]
READ(xs) -> [*]
1: COND (range xs) -> [THEN=*, ELSE=2]
WRITE(x, ?) -> [*]
BLOCK -> [*]
STMT -> [*]
READ(x) -> [*]
READWRITE(s, += x) -> [1]
2: STMT -> [*]
GOTO -> [*]
END`,
		},
		{
			"labeled",
			`package main

			func f(n int) {
			outer:
				for i := 0; i < n; i++ {
					for {
						if i == 3 {
							break outer
						}
						continue outer
					}
				}
				panic("done")
			}`,
			`
BLOCK -> [*]
STMT -> [*]
STMT -> [*]
WRITE(i, 0) -> [*]
1: READ(i) -> [*]
READ(n) -> [*]
COND (i < n) -> [THEN=*, ELSE=3]
BLOCK -> [*]
STMT -> [*]
BLOCK -> [*]
STMT -> [*]
READ(i) -> [*]
COND (i == 3) -> [THEN=*, ELSE=2]
BLOCK -> [*]
STMT -> [*]
GOTO -> [3]
2: STMT -> [*]
GOTO -> [*]
READWRITE(i, ++) -> [1]
3: STMT -> [*]
THROW -> [*]
END`,
		},
		{
			"goto",
			`package main

			func f(n int) int {
			loop:
				n--
				if n > 0 {
					goto loop
				}
				return n
			}`,
			`
BLOCK -> [*]
1: STMT -> [*]
READWRITE(n, --) -> [*]
STMT -> [*]
READ(n) -> [*]
COND (n > 0) -> [THEN=*, ELSE=2]
BLOCK -> [*]
STMT -> [*]
GOTO -> [1]
2: STMT -> [*]
READ(n) -> [*]
GOTO -> [*]
END`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := testutil.BuildCfg(t, test.src, "f")
			if got, want := cfg.Print(g), trimTrace(test.trace); got != want {
				t.Errorf("Trace mismatch.\nGot:\n%s\nWant:\n%s", got, want)
			}
		})
	}
}

func TestTraceGolden(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"switch", `package main

			func f(i int) int {
				switch i {
				case 1, 2:
					return 10
				default:
					return 0
				}
			}`},
		{"fallthrough", `package main

			func f(i int) (r int) {
				switch {
				default:
					r = 1
				case i > 0:
					r = 2
					fallthrough
				case i < -5:
					r = 3
				}
				return
			}`},
		{"typeswitch", `package main

			func f(x interface{}) int {
				switch v := x.(type) {
				case int:
					return v
				case nil:
					return 0
				}
				return -1
			}`},
		{"select", `package main

			func f(c chan int, d chan bool) int {
				select {
				case v := <-c:
					return v
				case d <- true:
				default:
				}
				return 0
			}`},
		{"assignments", `package main

			type T struct{ f int }

			func (t *T) get() int { return t.f }

			func f(t *T, xs []int) {
				a, b := 1, 2
				a, b = b, a
				xs[a] = len(xs)
				t.f = t.get()
				var z float64
				z += 1.5
				defer println(z)
				_ = b
			}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := testutil.BuildCfg(t, test.src, "f")
			goldie.New(t).Assert(t, t.Name(), []byte(cfg.Print(g)))
		})
	}
}

const loops = `package main

func f(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			continue
		}
		s += i
	}
	return s
}`

func TestTraceDeterministic(t *testing.T) {
	a := cfg.Print(testutil.BuildCfg(t, loops, "f"))
	b := cfg.Print(testutil.BuildCfg(t, loops, "f"))
	if a != b {
		t.Errorf("Traces of two builds differ:\n%s\n%s", a, b)
	}
}

func TestGraphShape(t *testing.T) {
	g := testutil.BuildCfg(t, loops, "f")

	if len(g.EntryEdges()) != 1 || g.Entry() != 0 {
		t.Errorf("Expected a single entry edge into node 0")
	}
	if _, ok := g.Source(g.EntryEdges()[0]); ok {
		t.Errorf("The entry edge should have no source")
	}

	ends := 0
	for _, n := range g.Nodes() {
		if _, ok := g.Node(n).(*cfg.End); ok {
			ends++
			if g.End() != n {
				t.Errorf("End() is %d, but END is node %d", g.End(), n)
			}
			if len(g.OutEdges(n)) != 0 {
				t.Errorf("END has out edges")
			}
		}
		for _, e := range g.OutEdges(n) {
			if from, _ := g.Source(e); from != n {
				t.Errorf("Out edge %d of %d leaves %d", e, n, from)
			}
		}
	}
	if ends != 1 {
		t.Errorf("Expected exactly one END, found %d", ends)
	}

	reached := g.Reachable()
	if len(reached) != g.Len() {
		t.Errorf("Expected all %d nodes to be reachable, got %d", g.Len(), len(reached))
	}

	// The loop test is the only loop header.
	headers := g.LoopHeaders()
	if len(headers) != 1 {
		t.Fatalf("Expected one loop header, got %v", headers)
	}
	for h := range headers {
		if _, ok := g.Node(h).(*cfg.Read); !ok {
			t.Errorf("Expected the loop to start with a read of i, got %s", g.Node(h))
		}
		if !g.IsMerge(h) {
			t.Errorf("Loop header %d is not a merge node", h)
		}
	}
}

func TestUnreachable(t *testing.T) {
	g := testutil.BuildCfg(t, `package main

	func f() int {
		return 1
		x := 2
		return x
	}`, "f")

	reached := g.Reachable()
	for _, n := range g.Nodes() {
		if w, ok := g.Node(n).(*cfg.Write); ok && reached[n] {
			t.Errorf("%s should be unreachable", w)
		}
	}
	if !reached[g.End()] {
		t.Errorf("END should be reachable")
	}
}

func TestPriorities(t *testing.T) {
	g := testutil.BuildCfg(t, loops, "f")
	less := g.Priorities()

	var loopNode, after cfg.NodeID = -1, -1
	for h := range g.LoopHeaders() {
		loopNode = h
	}
	for _, n := range g.Nodes() {
		if _, ok := g.Node(n).(*cfg.Goto); ok {
			after = n
		}
	}
	if !less(loopNode, after) {
		t.Errorf("The loop (%d) should be prioritized over the return (%d)", loopNode, after)
	}
	if !less(0, 1) {
		t.Errorf("Entry should come before its successor")
	}
}

func TestVariableBinding(t *testing.T) {
	g := testutil.BuildCfg(t, `package main

	func f(p int) int {
		x := p
		q := &p
		_ = q
		return x
	}`, "f")

	for _, n := range g.Nodes() {
		switch n := g.Node(n).(type) {
		case *cfg.Read:
			switch n.Ident.Name {
			case "p":
				if n.Var != nil {
					t.Errorf("p has its address taken and should not be tracked")
				}
			case "x", "q":
				if n.Var == nil || n.Var.Name() != n.Ident.Name {
					t.Errorf("Read of %s is not bound to its variable", n.Ident.Name)
				}
			}
		case *cfg.Write:
			if n.Var == nil {
				t.Errorf("%s is not bound to a variable", n)
			}
		}
	}
}

func TestToDot(t *testing.T) {
	g := testutil.BuildCfg(t, loops, "f")

	blocks := g.BasicBlocks()
	if blocks[0] != 0 || blocks[1] != 0 {
		t.Errorf("Expected the entry nodes to share a basic block, got %v", blocks[:2])
	}

	var buf bytes.Buffer
	err := g.ToDot("f", func(e cfg.EdgeID) string { return "T" }).WriteDot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{`style="dashed"`, `shape="diamond"`, `label="THEN T"`, "COND (i < n)"} {
		if !strings.Contains(out, s) {
			t.Errorf("Expected dot output to contain %s:\n%s", s, out)
		}
	}
}

func TestBuildExamples(t *testing.T) {
	if testing.Short() {
		t.Skip("Loading example packages is slow")
	}

	for _, pkg := range testutil.ListExamples(t, "../..") {
		t.Run(pkg, func(t *testing.T) {
			p := testutil.LoadExamplePackage(t, "../..", pkg)
			for _, fun := range pkgutil.Functions(p) {
				g := cfg.Build(p.Fset, p.TypesInfo, fun.Node)
				if g.Len() == 0 || !g.Reachable()[g.Entry()] {
					t.Errorf("Malformed graph for %s", fun)
				}
			}
		})
	}
}
