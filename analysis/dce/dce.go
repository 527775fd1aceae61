// Package dce removes code made dead by constant folding: branches on
// constant conditions, loops that never run, and locals that are only
// assigned.
package dce

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"
)

// Stats counts the eliminations.
type Stats struct {
	Branches int
	Loops    int
	Vars     int
	Imports  int
}

func (s *Stats) Add(o Stats) {
	s.Branches += o.Branches
	s.Loops += o.Loops
	s.Vars += o.Vars
	s.Imports += o.Imports
}

// Package eliminates dead code in every file of pkg. The type information of
// pkg must describe its current syntax, and is stale afterwards.
func Package(pkg *packages.Package) (s Stats) {
	for _, file := range pkg.Syntax {
		s.Add(File(pkg.Fset, pkg.TypesInfo, file))
	}
	return
}

// File eliminates dead code in file. Removals that would leave a local
// variable or a label unused, and so break the build, are skipped. Imports
// left unused are deleted.
func File(fset *token.FileSet, info *types.Info, file *ast.File) Stats {
	e := &eliminator{
		info:     info,
		locals:   make(map[*types.Var]bool),
		assigned: make(map[*ast.Ident]bool),
		uses:     make(map[*types.Var]int),
	}
	e.count(file)

	astutil.Apply(file, nil, e.post)
	e.deadVars(file)
	e.imports(fset, file)
	return e.stats
}

type eliminator struct {
	info *types.Info
	// locals are the variables declared in function bodies.
	locals map[*types.Var]bool
	// assigned identifiers are the targets of plain assignments, which do
	// not count as uses.
	assigned map[*ast.Ident]bool
	// uses counts the uses of locals in the current syntax.
	uses  map[*types.Var]int
	stats Stats
}

func (e *eliminator) count(file *ast.File) {
	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FieldList:
			// Receivers and parameters may go unused.
			return false
		case *ast.Ident:
			if v, ok := e.info.Defs[n].(*types.Var); ok && !v.IsField() && v.Parent() != v.Pkg().Scope() {
				e.locals[v] = true
			}
		case *ast.CaseClause:
			if v, ok := e.info.Implicits[n].(*types.Var); ok {
				e.locals[v] = true
			}
		case *ast.AssignStmt:
			if n.Tok == token.ASSIGN || n.Tok == token.DEFINE {
				for _, l := range n.Lhs {
					if id, ok := astutil.Unparen(l).(*ast.Ident); ok {
						e.assigned[id] = true
					}
				}
			}
		case *ast.RangeStmt:
			for _, l := range []ast.Expr{n.Key, n.Value} {
				if id, ok := l.(*ast.Ident); ok {
					e.assigned[id] = true
				}
			}
		}
		return true
	})

	ast.Inspect(file, func(n ast.Node) bool {
		if v := e.usedVar(n); v != nil {
			e.uses[v]++
		}
		return true
	})
}

// usedVar is the local used by n, if n is an identifier that counts as a use.
func (e *eliminator) usedVar(n ast.Node) *types.Var {
	id, ok := n.(*ast.Ident)
	if !ok || e.assigned[id] {
		return nil
	}
	if v, ok := e.info.Uses[id].(*types.Var); ok && e.locals[v] {
		return v
	}
	return nil
}

// constBool is the value of a constant boolean condition.
func (e *eliminator) constBool(cond ast.Expr) (val, ok bool) {
	tv, found := e.info.Types[cond]
	if !found || tv.Value == nil {
		return false, false
	}
	val, err := strconv.ParseBool(tv.Value.ExactString())
	return val, err == nil
}

func (e *eliminator) post(c *astutil.Cursor) bool {
	if _, ok := c.Parent().(*ast.LabeledStmt); ok {
		return true
	}

	switch n := c.Node().(type) {
	case *ast.IfStmt:
		val, ok := e.constBool(n.Cond)
		if !ok || n.Init != nil {
			break
		}
		keep, drop := ast.Stmt(n.Body), n.Else
		if !val {
			keep, drop = n.Else, n.Body
		}
		if !e.remove(n.Cond, drop) {
			break
		}
		e.stats.Branches++
		if keep != nil {
			c.Replace(keep)
		} else {
			e.delete(c)
		}

	case *ast.ForStmt:
		val, ok := e.constBool(n.Cond)
		if !ok || val || n.Init != nil || !e.remove(n) {
			break
		}
		e.stats.Loops++
		e.delete(c)
	}
	return true
}

func (e *eliminator) delete(c *astutil.Cursor) {
	if c.Index() >= 0 {
		c.Delete()
	} else {
		c.Replace(&ast.BlockStmt{})
	}
}

// remove reports whether the nodes can be dropped without leaving a local
// unused or a label undefined, and if so accounts for the lost uses.
func (e *eliminator) remove(nodes ...ast.Node) bool {
	lost := make(map[*types.Var]int)
	ok := true
	for _, n := range nodes {
		if n == nil || !ok {
			continue
		}
		ast.Inspect(n, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.LabeledStmt:
				ok = false
			case *ast.BranchStmt:
				if n.Label != nil {
					ok = false
				}
			}
			if v := e.usedVar(n); v != nil {
				lost[v]++
			}
			return ok
		})
	}
	if !ok {
		return false
	}

	for v, k := range lost {
		if e.uses[v] <= k && !declaredIn(v, nodes) {
			return false
		}
	}
	for v, k := range lost {
		e.uses[v] -= k
	}
	return true
}

func declaredIn(v *types.Var, nodes []ast.Node) bool {
	for _, n := range nodes {
		if n != nil && n.Pos() <= v.Pos() && v.Pos() < n.End() {
			return true
		}
	}
	return false
}

// occurrence is an identifier referring to a local.
type occurrence struct {
	v *types.Var
	// own is the statement removable together with v, if any.
	own ast.Stmt
	// stmts enclose the occurrence.
	stmts []ast.Stmt
	def   bool
	use   bool
}

// deadVars removes the locals whose only uses are `_ = x` statements, with
// all statements that assign them. A removal never leaves another local
// without uses.
func (e *eliminator) deadVars(file *ast.File) {
	var (
		occs   []occurrence
		stack  []ast.Node
		owners = make(map[ast.Stmt]*types.Var)
	)
	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return true
		}
		stack = append(stack, n)

		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		v, def := e.info.Defs[id].(*types.Var)
		if !def {
			v, _ = e.info.Uses[id].(*types.Var)
		}
		if v == nil || !e.locals[v] {
			return true
		}

		o := occurrence{v: v, def: def, use: e.usedVar(id) != nil}
		for _, n := range stack {
			if s, ok := n.(ast.Stmt); ok {
				o.stmts = append(o.stmts, s)
			}
		}
		if o.own = e.removable(stack, id); o.own != nil {
			owners[o.own] = v
		}
		occs = append(occs, o)
		return true
	})

	dead := make(map[*types.Var]bool)
	for _, o := range occs {
		if o.def {
			dead[o.v] = true
		}
	}
	removed := func(o occurrence) (by []*types.Var) {
		for _, s := range o.stmts {
			if w, ok := owners[s]; ok && dead[w] {
				by = append(by, w)
			}
		}
		return
	}

	// Shrink the candidates until every occurrence of a dead local disappears
	// with the removed statements, and no live local loses all its uses.
	for changed := true; changed; {
		changed = false
		for _, o := range occs {
			if dead[o.v] && len(removed(o)) == 0 {
				delete(dead, o.v)
				changed = true
			}
		}

		uses := make(map[*types.Var]int)
		lost := make(map[*types.Var][]*types.Var)
		for _, o := range occs {
			if dead[o.v] || !o.use {
				continue
			}
			uses[o.v]++
			if by := removed(o); len(by) > 0 {
				lost[o.v] = append(lost[o.v], by...)
			}
		}
		for v, by := range lost {
			if len(by) < uses[v] {
				continue
			}
			for _, w := range by {
				if dead[w] {
					delete(dead, w)
					changed = true
				}
			}
		}
	}
	if len(dead) == 0 {
		return
	}

	e.stats.Vars += len(dead)
	astutil.Apply(file, func(c *astutil.Cursor) bool {
		s, ok := c.Node().(ast.Stmt)
		if !ok {
			return true
		}
		if w, ok := owners[s]; ok && dead[w] {
			c.Delete()
			return false
		}
		return true
	}, nil)
}

// removable returns the statement that can be dropped together with the
// variable id refers to, or nil if the occurrence is a real use. The stack
// ends with id.
func (e *eliminator) removable(stack []ast.Node, id *ast.Ident) ast.Stmt {
	var (
		stmt   ast.Stmt
		parent ast.Node
	)
	for i := len(stack) - 2; i >= 0; i-- {
		if s, ok := stack[i].(ast.Stmt); ok {
			stmt = s
			if i > 0 {
				parent = stack[i-1]
			}
			break
		}
	}
	switch p := parent.(type) {
	case *ast.BlockStmt, *ast.CaseClause:
	case *ast.CommClause:
		if p.Comm == stmt {
			return nil
		}
	default:
		return nil
	}

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
			return nil
		}
		lhs, rhs := astutil.Unparen(s.Lhs[0]), astutil.Unparen(s.Rhs[0])
		switch {
		case s.Tok == token.ASSIGN && rhs == id:
			if blank, ok := lhs.(*ast.Ident); ok && blank.Name == "_" {
				return s
			}
		case (s.Tok == token.ASSIGN || s.Tok == token.DEFINE) && lhs == id:
			if e.pure(rhs) {
				return s
			}
		}

	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR || len(gd.Specs) != 1 {
			return nil
		}
		vs := gd.Specs[0].(*ast.ValueSpec)
		if len(vs.Names) != 1 || vs.Names[0] != id {
			return nil
		}
		for _, val := range vs.Values {
			if !e.pure(val) {
				return nil
			}
		}
		return s
	}
	return nil
}

// pure holds for expressions that cannot have effects or panic.
func (e *eliminator) pure(x ast.Expr) bool {
	if tv, ok := e.info.Types[x]; ok && tv.Value != nil {
		return true
	}

	switch x := x.(type) {
	case *ast.BasicLit, *ast.FuncLit:
		return true
	case *ast.Ident:
		return true
	case *ast.ParenExpr:
		return e.pure(x.X)
	case *ast.UnaryExpr:
		return x.Op != token.ARROW && e.pure(x.X)
	case *ast.BinaryExpr:
		switch x.Op {
		case token.QUO, token.REM, token.SHL, token.SHR:
			// Division by zero and negative shifts panic.
			if tv := e.info.Types[x.Y]; tv.Value == nil {
				return false
			}
		case token.EQL, token.NEQ:
			// Comparing interfaces panics on dynamic types that are not
			// comparable.
			if e.dynamic(x.X) && e.dynamic(x.Y) {
				return false
			}
		}
		return e.pure(x.X) && e.pure(x.Y)
	case *ast.CompositeLit:
		for _, elt := range x.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				elt = kv.Value
			}
			if !e.pure(elt) {
				return false
			}
		}
		return true
	case *ast.CallExpr:
		tv := e.info.Types[x.Fun]
		if !tv.IsType() || len(x.Args) != 1 {
			return false
		}
		// Conversions between basic types and to interfaces never panic.
		switch tv.Type.Underlying().(type) {
		case *types.Basic, *types.Interface:
			return e.pure(x.Args[0])
		}
	}
	return false
}

// dynamic reports whether x may hold a value of an arbitrary dynamic type
// when compared. The untyped nil never does.
func (e *eliminator) dynamic(x ast.Expr) bool {
	t := e.info.TypeOf(x)
	if t == nil {
		return true
	}
	return holdsInterface(t, make(map[types.Type]bool))
}

func holdsInterface(t types.Type, seen map[types.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t := t.Underlying().(type) {
	case *types.Interface:
		return true
	case *types.Array:
		return holdsInterface(t.Elem(), seen)
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if holdsInterface(t.Field(i).Type(), seen) {
				return true
			}
		}
	}
	return false
}

// imports deletes the imports no longer referred to.
func (e *eliminator) imports(fset *token.FileSet, file *ast.File) {
	used := make(map[*types.PkgName]bool)
	ast.Inspect(file, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if pn, ok := e.info.Uses[id].(*types.PkgName); ok {
				used[pn] = true
			}
		}
		return true
	})

	for _, spec := range file.Imports {
		obj := e.info.Implicits[spec]
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
			obj = e.info.Defs[spec.Name]
		}
		pn, ok := obj.(*types.PkgName)
		if !ok || name == "_" || name == "." || used[pn] {
			continue
		}
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		if astutil.DeleteNamedImport(fset, file, name, path) {
			e.stats.Imports++
		}
	}
}
