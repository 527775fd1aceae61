package main

import (
	"bytes"
	"flag"
	"go/format"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/cs-au-dk/gflow/testutil"

	"golang.org/x/tools/go/packages"
)

func loadDemo(t *testing.T) pipeline {
	t.Helper()
	pkg := testutil.LoadExamplePackage(t, ".", "constfold-demo")
	return pipeline{pkgs: []*packages.Package{pkg}, funs: pkgutil.Functions(pkg)}
}

func setFlag(t *testing.T, name, value string) {
	t.Helper()
	old := flag.Lookup(name).Value.String()
	require.NoError(t, flag.Set(name, value))
	t.Cleanup(func() { flag.Set(name, old) })
}

func TestSolveAll(t *testing.T) {
	setFlag(t, "jobs", "4")
	pl := loadDemo(t)

	results := pl.solveAll(true)
	require.Len(t, results, len(pl.funs))
	for i, s := range results {
		assert.Same(t, pl.funs[i], s.fun, "results keep the order of the functions")
		assert.NoError(t, s.err)
		assert.NotNil(t, s.res, s.fun.String())
	}
}

func TestOptimize(t *testing.T) {
	setFlag(t, "dce", "true")
	pl := loadDemo(t)
	pl.optimize()

	bodies := make(map[string]string)
	for _, fun := range pl.funs {
		var buf bytes.Buffer
		require.NoError(t, format.Node(&buf, fun.Pkg.Fset, fun.Node))
		bodies[fun.Name] = strings.Join(strings.Fields(buf.String()), " ")
	}

	assert.Equal(t, "func counter() int { return 2 }", bodies["counter"])
	assert.Equal(t, "func typed() Celsius { return Celsius(22.5) }", bodies["typed"])
	assert.Contains(t, bodies["deduce"], "return 3 * 2")
	assert.Contains(t, bodies["shortcircuit"], "return 1 + 2")
	assert.Equal(t, "func dead() int { const debug = false k := 4 return k }", bodies["dead"])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "T_m", sanitize("(*T).m"))
	assert.Equal(t, "main_1", sanitize("main$1"))
}
