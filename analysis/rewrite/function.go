// Package rewrite substitutes constant literals for reads of variables in
// the syntax of a type checked package.
package rewrite

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"

	L "github.com/cs-au-dk/gflow/analysis/lattice"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/ast/astutil"
)

// ErrIllTyped is returned when a rewritten package no longer type checks.
var ErrIllTyped = errors.New("rewritten package does not type check")

// Stats counts what happened to the substitutions of a function.
type Stats struct {
	// Substituted reads.
	Substituted int
	// Rejected substitutions, which would not have type checked or would
	// have changed the type of the surrounding expression.
	Rejected int
	// KeptAlive is the number of `_ = x` statements inserted.
	KeptAlive int
}

func (s *Stats) Add(o Stats) {
	s.Substituted += o.Substituted
	s.Rejected += o.Rejected
	s.KeptAlive += o.KeptAlive
}

// Function replaces the identifiers in subs, all of which must be reads in
// the body of fn, by their literal. fn is an *ast.FuncDecl or *ast.FuncLit of
// pkg, and info must describe the syntax before any rewriting.
//
// Substitutions are applied per statement level expression, in source order,
// and each is kept only if the expression still type checks to the same
// type. Case values and the operands of `_ = x` are never replaced. A local
// variable left without uses is kept alive with `_ = x`.
func Function(fset *token.FileSet, pkg *types.Package, info *types.Info, fn ast.Node, subs map[*ast.Ident]L.Literal) Stats {
	var body *ast.BlockStmt
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		body = fn.Body
	case *ast.FuncLit:
		body = fn.Body
	}
	if body == nil || len(subs) == 0 {
		return Stats{}
	}

	r := &rewriter{
		fset:    fset,
		pkg:     pkg,
		info:    info,
		subs:    subs,
		qual:    Qualifier(pkg, body.Pos()),
		touched: make(map[*types.Var]bool),
	}
	astutil.Apply(body, r.visit, nil)
	r.keepAlive(body)
	return r.stats
}

type rewriter struct {
	fset *token.FileSet
	pkg  *types.Package
	info *types.Info
	subs map[*ast.Ident]L.Literal
	qual types.Qualifier

	// touched variables had at least one read replaced.
	touched map[*types.Var]bool
	stats   Stats
}

func (r *rewriter) visit(c *astutil.Cursor) bool {
	switch n := c.Node().(type) {
	case *ast.FuncLit:
		// Rewritten with their own facts.
		return false

	case *ast.CaseClause:
		for _, s := range n.Body {
			astutil.Apply(s, r.visit, nil)
		}
		return false

	case *ast.AssignStmt:
		if isBlank(n) {
			return false
		}

	case *ast.TypeAssertExpr:
		if n.Type == nil {
			// The guard of a type switch only type checks in place.
			n.X = r.root(n.X)
			return false
		}
	}

	if e, ok := c.Node().(ast.Expr); ok {
		if _, nested := c.Parent().(ast.Expr); !nested {
			if res := r.root(e); res != e {
				c.Replace(res)
			}
			return false
		}
	}
	return true
}

// isBlank holds for `_ = x` statements.
func isBlank(s *ast.AssignStmt) bool {
	if s.Tok != token.ASSIGN {
		return false
	}
	for _, l := range s.Lhs {
		if id, ok := l.(*ast.Ident); !ok || id.Name != "_" {
			return false
		}
	}
	return true
}

// root substitutes inside a statement level expression and returns the
// rewritten expression.
func (r *rewriter) root(root ast.Expr) ast.Expr {
	var ids []*ast.Ident
	ast.Inspect(root, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if _, ok := r.subs[id]; ok {
				ids = append(ids, id)
			}
		}
		return true
	})
	if len(ids) == 0 {
		return root
	}

	pos, want := root.Pos(), r.info.TypeOf(root)
	cur := root
	for _, id := range ids {
		lit := r.subs[id]
		v, _ := r.info.Uses[id].(*types.Var)
		if v == nil {
			r.stats.Rejected++
			continue
		}

		e, err := Expr(lit, v.Type(), r.qual, id.Pos())
		if err != nil {
			r.stats.Rejected++
			continue
		}

		next := replace(cur, id, e)
		if !r.accepts(next, pos, want) {
			cur = replace(next, e, id)
			r.stats.Rejected++
			continue
		}
		cur = next
		r.touched[v] = true
		r.stats.Substituted++
	}

	return cur
}

// replace swaps old for new in root, which may be old itself.
func replace(root ast.Expr, old, new ast.Expr) ast.Expr {
	return astutil.Apply(root, func(c *astutil.Cursor) bool {
		if c.Node() == old {
			c.Replace(new)
			return false
		}
		return true
	}, nil).(ast.Expr)
}

// accepts reports whether e type checks at pos to want, or to an untyped
// type defaulting to want.
func (r *rewriter) accepts(e ast.Expr, pos token.Pos, want types.Type) bool {
	if want == nil {
		return false
	}
	info := &types.Info{Types: make(map[ast.Expr]types.TypeAndValue)}
	if err := types.CheckExpr(r.fset, r.pkg, pos, e, info); err != nil {
		return false
	}
	got := info.TypeOf(e)
	return got != nil && types.Identical(types.Default(got), types.Default(want))
}

// keepAlive inserts `_ = x` for every local variable whose reads were all
// replaced, which would otherwise no longer compile.
func (r *rewriter) keepAlive(body *ast.BlockStmt) {
	// Plain assignments do not count as uses.
	assigned := make(map[*ast.Ident]bool)
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if n.Tok == token.ASSIGN || n.Tok == token.DEFINE {
				for _, l := range n.Lhs {
					if id, ok := astutil.Unparen(l).(*ast.Ident); ok {
						assigned[id] = true
					}
				}
			}
		case *ast.RangeStmt:
			for _, l := range []ast.Expr{n.Key, n.Value} {
				if id, ok := l.(*ast.Ident); ok {
					assigned[id] = true
				}
			}
		}
		return true
	})

	used := make(map[*types.Var]bool)
	ast.Inspect(body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && !assigned[id] {
			if v, ok := r.info.Uses[id].(*types.Var); ok {
				used[v] = true
			}
		}
		return true
	})

	var dead []*types.Var
	for v := range r.touched {
		local := body.Lbrace < v.Pos() && v.Pos() < body.Rbrace
		if local && !used[v] {
			dead = append(dead, v)
		}
	}
	slices.SortFunc(dead, func(a, b *types.Var) bool { return a.Pos() < b.Pos() })

	for _, v := range dead {
		if r.insertUse(body, v) {
			r.stats.KeptAlive++
		}
	}
}

// insertUse places `_ = v` right after the declaration of v, or at the start
// of the body its declaring statement scopes over.
func (r *rewriter) insertUse(body *ast.BlockStmt, v *types.Var) bool {
	use := &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent("_")},
		Tok: token.ASSIGN,
		Rhs: []ast.Expr{ast.NewIdent(v.Name())},
	}
	prepend := func(list *[]ast.Stmt) bool {
		*list = append([]ast.Stmt{use}, *list...)
		return true
	}

	path := r.declPath(body, v)
	for i := len(path) - 1; i > 0; i-- {
		child, parent := path[i], path[i-1]
		switch p := parent.(type) {
		case *ast.BlockStmt:
			return insertAfter(&p.List, child, use)
		case *ast.CaseClause:
			if r.info.Implicits[p] == v {
				return prepend(&p.Body)
			}
			return insertAfter(&p.Body, child, use)
		case *ast.CommClause:
			if child == p.Comm {
				return prepend(&p.Body)
			}
			return insertAfter(&p.Body, child, use)
		case *ast.IfStmt:
			if child == p.Init {
				return prepend(&p.Body.List)
			}
		case *ast.ForStmt:
			if child == p.Init {
				return prepend(&p.Body.List)
			}
		case *ast.RangeStmt:
			if child == p.Key || child == p.Value {
				return prepend(&p.Body.List)
			}
		case *ast.SwitchStmt:
			if child == p.Init && len(p.Body.List) > 0 {
				return prepend(&p.Body.List[0].(*ast.CaseClause).Body)
			}
		}
	}
	return false
}

// declPath is the path of nodes from body down to the declaration of v. For
// type switch bindings it ends at the clause declaring v.
func (r *rewriter) declPath(body *ast.BlockStmt, v *types.Var) []ast.Node {
	var (
		stack []ast.Node
		found []ast.Node
	)
	ast.Inspect(body, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		if n == nil {
			stack = stack[:len(stack)-1]
			return false
		}
		stack = append(stack, n)

		hit := false
		switch n := n.(type) {
		case *ast.Ident:
			hit = r.info.Defs[n] == v
		case *ast.CaseClause:
			hit = r.info.Implicits[n] == v
		}
		if hit {
			found = append([]ast.Node(nil), stack...)
			if _, ok := n.(*ast.CaseClause); ok {
				// Continue as if the binding were a child of the clause.
				found = append(found, n)
			}
		}
		return true
	})
	return found
}

func insertAfter(list *[]ast.Stmt, child ast.Node, s ast.Stmt) bool {
	for i, c := range *list {
		if c == child {
			*list = slices.Insert(*list, i+1, s)
			return true
		}
	}
	return false
}
