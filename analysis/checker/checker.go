// Package checker exposes constant propagation as a go/analysis pass. Every
// read of a variable that could be replaced by a literal is reported, with
// the replacement as a suggested fix.
package checker

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/constprop"
	L "github.com/cs-au-dk/gflow/analysis/lattice"
	"github.com/cs-au-dk/gflow/analysis/rewrite"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/ast/inspector"
)

const doc = `report reads of variables that always hold the same constant

The constprop analyzer runs conditional constant propagation on every
function and reports each read whose value is known, when the literal can
replace the read without changing the type of the surrounding expression.`

var Analyzer = &analysis.Analyzer{
	Name:     "constprop",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	c := &checker{
		pass:    pass,
		factory: constprop.Factory{Fset: pass.Fset, Types: pass.Pkg, Info: pass.TypesInfo},
		sources: make(map[string][]byte),
	}

	filter := []ast.Node{(*ast.FuncDecl)(nil), (*ast.FuncLit)(nil)}
	insp.WithStack(filter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return false
		}
		if fd, ok := n.(*ast.FuncDecl); ok && fd.Body == nil {
			return false
		}
		c.function(stack[0].(*ast.File), n)
		return true
	})
	return nil, nil
}

type checker struct {
	pass    *analysis.Pass
	factory constprop.Factory
	sources map[string][]byte
}

// function reports the folds of fn. Functions on which the analysis does not
// converge are skipped.
func (c *checker) function(file *ast.File, fn ast.Node) {
	g := cfg.Build(c.pass.Fset, c.pass.TypesInfo, fn)
	res, err := c.factory.Solve(g)
	if err != nil {
		return
	}

	folds := c.factory.Folds(g, res)
	ids := make([]*ast.Ident, 0, len(folds))
	for id := range folds {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b *ast.Ident) bool { return a.Pos() < b.Pos() })

	for _, id := range ids {
		c.report(file, id, folds[id])
	}
}

func (c *checker) report(file *ast.File, id *ast.Ident, lit L.Literal) {
	v, ok := c.pass.TypesInfo.Uses[id].(*types.Var)
	if !ok {
		return
	}
	e, err := rewrite.Expr(lit, v.Type(), rewrite.Qualifier(c.pass.Pkg, id.Pos()), id.Pos())
	if err != nil {
		return
	}
	text := types.ExprString(e)

	root := rootOf(file, id)
	if root == nil || !c.accepts(root, id, text) {
		return
	}

	c.pass.Report(analysis.Diagnostic{
		Pos:     id.Pos(),
		End:     id.End(),
		Message: fmt.Sprintf("%s is constant %s", id.Name, lit),
		SuggestedFixes: []analysis.SuggestedFix{{
			Message: "Replace with " + text,
			TextEdits: []analysis.TextEdit{{
				Pos:     id.Pos(),
				End:     id.End(),
				NewText: []byte(text),
			}},
		}},
	})
}

// rootOf is the statement level expression containing id, or nil where a
// literal is never substituted.
func rootOf(file *ast.File, id *ast.Ident) ast.Expr {
	path, _ := astutil.PathEnclosingInterval(file, id.Pos(), id.End())
	var root ast.Expr = id
	for _, n := range path[1:] {
		if ta, ok := n.(*ast.TypeAssertExpr); ok && ta.Type == nil {
			break
		}
		e, ok := n.(ast.Expr)
		if !ok {
			switch n := n.(type) {
			case *ast.CaseClause:
				for _, x := range n.List {
					if x == root {
						return nil
					}
				}
			case *ast.AssignStmt:
				if n.Tok == token.ASSIGN && len(n.Lhs) == 1 {
					if blank, ok := n.Lhs[0].(*ast.Ident); ok && blank.Name == "_" {
						return nil
					}
				}
			}
			break
		}
		root = e
	}
	return root
}

// accepts reports whether root, with the text of id replaced, type checks to
// the type root had.
func (c *checker) accepts(root ast.Expr, id *ast.Ident, text string) bool {
	src, err := c.source(root.Pos())
	if err != nil {
		return false
	}
	tf := c.pass.Fset.File(root.Pos())
	start, mid, end := tf.Offset(root.Pos()), tf.Offset(id.Pos()), tf.Offset(id.End())
	after := tf.Offset(root.End())
	expr := string(src[start:mid]) + text + string(src[end:after])

	tv, err := types.Eval(c.pass.Fset, c.pass.Pkg, root.Pos(), expr)
	want := c.pass.TypesInfo.TypeOf(root)
	return err == nil && tv.Type != nil && want != nil &&
		types.Identical(types.Default(tv.Type), types.Default(want))
}

func (c *checker) source(pos token.Pos) ([]byte, error) {
	name := c.pass.Fset.File(pos).Name()
	if src, ok := c.sources[name]; ok {
		return src, nil
	}
	src, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	c.sources[name] = src
	return src, nil
}
