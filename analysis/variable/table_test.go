package variable

import (
	"testing"

	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(t *testing.T, src, name string) *Table {
	t.Helper()
	pkg, err := pkgutil.CheckSource(src)
	require.NoError(t, err)
	fun, ok := pkgutil.FunctionByName(pkg, name)
	require.True(t, ok, "function %s not found", name)
	return NewTable(pkg.TypesInfo, fun.Node)
}

func names(vars []*Variable) (res []string) {
	for _, v := range vars {
		res = append(res, v.Name())
	}
	return
}

func TestTableOrder(t *testing.T) {
	table := tableOf(t, `package main

type S struct{ f int }

func (s S) m(a, b int, _ string) (r float64) {
	x := a
	var y, z bool
	for i := 0; i < b; i++ {
		x += i
	}
	_, _, _ = x, y, z
	return
}
`, "(S).m")

	assert.Equal(t, []string{"s", "a", "b", "r", "x", "y", "z", "i"}, names(table.Vars()))
	assert.Equal(t, []string{"s", "a", "b", "r"}, names(table.Params()))
	assert.Equal(t, 8, table.Len())

	for i, v := range table.Vars() {
		assert.Equal(t, i, v.Index)
	}
}

func TestTableUntracked(t *testing.T) {
	table := tableOf(t, `package main

type C struct{ n int }

func (c *C) inc() { c.n++ }

func f() int {
	a := 1
	p := &a
	var arr [3]int
	s := arr[:]
	var c C
	c.inc()
	captured := 2
	g := func() int { return captured }
	plain := 3
	return *p + s[0] + g() + plain
}
`, "f")

	tracked := names(table.Vars())
	assert.Equal(t, []string{"p", "s", "g", "plain"}, tracked)

	for _, v := range table.Vars() {
		assert.False(t, table.IsUntracked(v.Obj))
	}
}

func TestTableTypeSwitch(t *testing.T) {
	table := tableOf(t, `package main

func f(x interface{}) int {
	switch v := x.(type) {
	case int:
		return v
	case string:
		return len(v)
	}
	return 0
}
`, "f")

	// One implicit object per clause.
	assert.Equal(t, []string{"x", "v", "v"}, names(table.Vars()))
	assert.Equal(t, Reference, table.Vars()[0].Kind)
	assert.Equal(t, Int, table.Vars()[1].Kind)
	assert.Equal(t, String, table.Vars()[2].Kind)
}

func TestKindOf(t *testing.T) {
	table := tableOf(t, `package main

type Celsius float64

func f(a int8, b float32, c Celsius, d bool, e string, g []int, h struct{}, i complex128, j error) {}
`, "f")

	kinds := []Kind{}
	for _, v := range table.Vars() {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []Kind{Int, Float, Double, Bool, String, Reference, Other, Complex, Reference}, kinds)
	assert.True(t, Float.IsFloating())
	assert.False(t, Int.IsFloating())
	assert.Equal(t, "double", Double.String())
}
