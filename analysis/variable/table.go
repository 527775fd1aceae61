package variable

import (
	"go/ast"
	"go/token"
	"go/types"
)

// Table interns the variables of a single function body. Only variables whose
// value cannot change behind the function's back are tracked: their address
// is never taken and no nested function literal refers to them.
type Table struct {
	vars      []*Variable
	byObj     map[*types.Var]*Variable
	untracked map[*types.Var]bool
}

// NewTable collects the variables of fn, which must be an *ast.FuncDecl or an
// *ast.FuncLit. Receivers, parameters and named results come first in
// signature order, followed by locals in declaration order. Locals of nested
// function literals belong to the literal's own table.
func NewTable(info *types.Info, fn ast.Node) *Table {
	var (
		recv  *ast.FieldList
		ftype *ast.FuncType
		body  *ast.BlockStmt
	)
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		recv, ftype, body = fn.Recv, fn.Type, fn.Body
	case *ast.FuncLit:
		ftype, body = fn.Type, fn.Body
	default:
		panic("variable table of a non-function node")
	}

	t := &Table{
		byObj:     make(map[*types.Var]*Variable),
		untracked: make(map[*types.Var]bool),
	}

	if body != nil {
		t.markUntracked(info, body)
	}

	for _, fl := range []*ast.FieldList{recv, ftype.Params, ftype.Results} {
		if fl == nil {
			continue
		}
		for _, field := range fl.List {
			for _, name := range field.Names {
				t.define(info.Defs[name], true)
			}
		}
	}

	if body == nil {
		return t
	}

	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.Ident:
			t.define(info.Defs[n], false)
		case *ast.CaseClause:
			// Type switch bindings are declared implicitly per clause.
			t.define(info.Implicits[n], false)
		}
		return true
	})

	return t
}

func (t *Table) define(obj types.Object, param bool) {
	v, ok := obj.(*types.Var)
	if !ok || v.IsField() || v.Name() == "_" || t.untracked[v] {
		return
	}
	if _, seen := t.byObj[v]; seen {
		return
	}

	variable := &Variable{
		Index: len(t.vars),
		Obj:   v,
		Kind:  KindOf(v.Type()),
		Param: param,
	}
	t.vars = append(t.vars, variable)
	t.byObj[v] = variable
}

// markUntracked finds variables whose address is taken, explicitly or
// through a pointer-receiver method or slicing of an array, and variables
// referenced from nested function literals.
func (t *Table) markUntracked(info *types.Info, body *ast.BlockStmt) {
	mark := func(e ast.Expr) {
		if id := addressedRoot(info, e); id != nil {
			if v, ok := info.Uses[id].(*types.Var); ok {
				t.untracked[v] = true
			}
		}
	}

	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.UnaryExpr:
			if n.Op == token.AND {
				mark(n.X)
			}
		case *ast.SliceExpr:
			if isArray(info.TypeOf(n.X)) {
				mark(n.X)
			}
		case *ast.SelectorExpr:
			sel, ok := info.Selections[n]
			if !ok || (sel.Kind() != types.MethodVal && sel.Kind() != types.MethodExpr) {
				break
			}
			if sel.Kind() == types.MethodVal {
				recv := sel.Obj().Type().(*types.Signature).Recv()
				if recv == nil {
					// Interface method.
					break
				}
				if _, ptrRecv := recv.Type().(*types.Pointer); ptrRecv && !isPointer(info.TypeOf(n.X)) {
					mark(n.X)
				}
			}
		case *ast.FuncLit:
			ast.Inspect(n.Body, func(m ast.Node) bool {
				id, ok := m.(*ast.Ident)
				if !ok {
					return true
				}
				if v, ok := info.Uses[id].(*types.Var); ok && !v.IsField() &&
					(v.Pos() < n.Pos() || v.Pos() >= n.End()) {
					t.untracked[v] = true
				}
				return true
			})
		}
		return true
	})
}

// addressedRoot returns the variable identifier whose storage contains the
// addressed operand e, or nil if e lives behind a pointer or is not a variable.
func addressedRoot(info *types.Info, e ast.Expr) *ast.Ident {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return addressedRoot(info, e.X)
	case *ast.Ident:
		return e
	case *ast.SelectorExpr:
		if sel, ok := info.Selections[e]; ok && sel.Kind() == types.FieldVal &&
			!sel.Indirect() && !isPointer(info.TypeOf(e.X)) {
			return addressedRoot(info, e.X)
		}
	case *ast.IndexExpr:
		if isArray(info.TypeOf(e.X)) {
			return addressedRoot(info, e.X)
		}
	}
	return nil
}

func isArray(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*types.Array)
	return ok
}

func isPointer(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

// Lookup returns the tracked variable for obj.
func (t *Table) Lookup(obj types.Object) (*Variable, bool) {
	v, ok := obj.(*types.Var)
	if !ok {
		return nil, false
	}
	variable, ok := t.byObj[v]
	return variable, ok
}

// Of returns the tracked variable an identifier refers to or defines.
func (t *Table) Of(info *types.Info, id *ast.Ident) (*Variable, bool) {
	if obj := info.Uses[id]; obj != nil {
		return t.Lookup(obj)
	}
	return t.Lookup(info.Defs[id])
}

// IsUntracked reports whether obj is a variable excluded from tracking.
func (t *Table) IsUntracked(obj types.Object) bool {
	v, ok := obj.(*types.Var)
	return ok && t.untracked[v]
}

// Vars returns the tracked variables ordered by index.
func (t *Table) Vars() []*Variable {
	return t.vars
}

// Params returns the tracked receivers, parameters and named results.
func (t *Table) Params() (params []*Variable) {
	for _, v := range t.vars {
		if v.Param {
			params = append(params, v)
		}
	}
	return
}

func (t *Table) Len() int {
	return len(t.vars)
}
