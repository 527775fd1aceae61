package cfg

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/cs-au-dk/gflow/analysis/variable"
)

// exit is a pending edge that will enter the next node emitted, or a
// node chosen later.
type exit struct {
	from  NodeID
	label Label
}

// target collects the exits of break and continue statements aimed at an
// enclosing for, range, switch or select statement.
type target struct {
	label     string
	loop      bool
	breaks    []exit
	continues []exit
}

type builder struct {
	g    *Cfg
	info *types.Info
	vars *variable.Table

	// pending exits enter the next emitted node.
	pending []exit
	// returns and panics, wired to END when the body is done.
	returns []exit
	throws  []exit

	targets []*target
	// labels of statements, set before they are visited.
	labelOf map[ast.Stmt]string
	// Goto targets already emitted, and gotos waiting for their label.
	labels map[string]NodeID
	gotos  map[string][]exit
	// fallthroughs out of the current switch clause.
	fallthroughs []exit
}

// Build constructs the control flow graph of fn, an *ast.FuncDecl or an
// *ast.FuncLit with a body. Nested function literals are not part of the
// graph. info must be the type information of the package declaring fn.
func Build(fset *token.FileSet, info *types.Info, fn ast.Node) *Cfg {
	var body *ast.BlockStmt
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		body = fn.Body
	case *ast.FuncLit:
		body = fn.Body
	}
	if body == nil {
		panic(fmt.Errorf("%w: function without a body", errUnsupportedSyntax))
	}

	g := &Cfg{
		Fset: fset,
		Fun:  fn,
		Vars: variable.NewTable(info, fn),
	}
	b := &builder{
		g:       g,
		info:    info,
		vars:    g.Vars,
		labelOf: make(map[ast.Stmt]string),
		labels:  make(map[string]NodeID),
		gotos:   make(map[string][]exit),
		// The entry edge has no source.
		pending: []exit{{NoNode, Fallthrough}},
	}

	b.stmt(body)

	b.pending = append(b.pending, b.returns...)
	b.pending = append(b.pending, b.throws...)
	g.end = b.jump(&End{node: b.mk(nil)})
	g.entry = g.in[0][0]

	if len(b.gotos) > 0 {
		panic(fmt.Errorf("%w: %d goto labels", errUnresolvedBranches, len(b.gotos)))
	}

	return g
}

// mk prepares the node header of the next node.
func (b *builder) mk(syntax ast.Node) node {
	return node{NodeID(len(b.g.nodes)), syntax}
}

// wire adds n to the graph and connects the pending exits to it.
func (b *builder) wire(n Node) NodeID {
	id := b.g.addNode(n)
	for _, e := range b.pending {
		b.g.addEdge(e.from, id, e.label)
	}
	b.pending = nil
	return id
}

// emit adds a node that falls through to the next one.
func (b *builder) emit(n Node) NodeID {
	id := b.wire(n)
	b.pending = []exit{{id, Fallthrough}}
	return id
}

// jump adds a node whose exits are handled by the caller.
func (b *builder) jump(n Node) NodeID {
	return b.wire(n)
}

func (b *builder) take() []exit {
	exits := b.pending
	b.pending = nil
	return exits
}

// edgeTo connects the exits to an already emitted node.
func (b *builder) edgeTo(exits []exit, to NodeID) {
	for _, e := range exits {
		b.g.addEdge(e.from, to, e.label)
	}
}

func (b *builder) next() NodeID {
	return NodeID(len(b.g.nodes))
}

func (b *builder) stmts(list []ast.Stmt) {
	for _, s := range list {
		b.stmt(s)
	}
}

func (b *builder) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		b.emit(&Block{b.mk(s), s})
		b.stmts(s.List)

	case *ast.ExprStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.expr(s.X)

	case *ast.EmptyStmt:
		b.emit(&Stmt{b.mk(s), s})

	case *ast.DeclStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.decl(s.Decl.(*ast.GenDecl))

	case *ast.AssignStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.assign(s)

	case *ast.IncDecStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.incDec(s)

	case *ast.SendStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.expr(s.Chan)
		b.expr(s.Value)

	case *ast.GoStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.callOperands(s.Call)

	case *ast.DeferStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.callOperands(s.Call)

	case *ast.ReturnStmt:
		b.emit(&Stmt{b.mk(s), s})
		for _, e := range s.Results {
			b.expr(e)
		}
		g := b.jump(&Goto{b.mk(s), s})
		b.returns = append(b.returns, exit{g, Fallthrough})

	case *ast.LabeledStmt:
		name := s.Label.Name
		b.labelOf[s.Stmt] = name
		b.labels[name] = b.next()
		// Forward gotos enter the first node of the statement.
		b.pending = append(b.pending, b.gotos[name]...)
		delete(b.gotos, name)
		b.stmt(s.Stmt)

	case *ast.BranchStmt:
		b.emit(&Stmt{b.mk(s), s})
		b.branch(s)

	case *ast.IfStmt:
		b.ifStmt(s)

	case *ast.ForStmt:
		b.forStmt(s)

	case *ast.RangeStmt:
		b.rangeStmt(s)

	case *ast.SwitchStmt:
		b.switchStmt(s)

	case *ast.TypeSwitchStmt:
		b.typeSwitchStmt(s)

	case *ast.SelectStmt:
		b.selectStmt(s)

	default:
		panic(fmt.Errorf("%w: %T", errUnsupportedSyntax, s))
	}
}

// simple visits the statement of a for loop's post position, which has no
// STMT node of its own.
func (b *builder) simple(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		b.assign(s)
	case *ast.IncDecStmt:
		b.incDec(s)
	case *ast.ExprStmt:
		b.expr(s.X)
	case *ast.SendStmt:
		b.expr(s.Chan)
		b.expr(s.Value)
	default:
		b.stmt(s)
	}
}

func (b *builder) objOf(id *ast.Ident) types.Object {
	if obj := b.info.Defs[id]; obj != nil {
		return obj
	}
	return b.info.Uses[id]
}

// write emits the write to target.
func (b *builder) write(target ast.Expr, value ast.Expr, kind WriteKind) {
	target = unparen(target)
	w := &Write{
		node:   b.mk(target),
		Target: target,
		Value:  value,
		Type:   b.info.TypeOf(target),
		Init:   kind,
	}
	if id, ok := target.(*ast.Ident); ok {
		if id.Name == "_" {
			return
		}
		obj := b.objOf(id)
		if obj == nil {
			return
		}
		w.Type = obj.Type()
		w.Var, _ = b.vars.Lookup(obj)
	}
	b.emit(w)
}

// lhs emits the reads performed by an assignment target before the store.
func (b *builder) lhs(e ast.Expr) {
	switch e := unparen(e).(type) {
	case *ast.Ident:
	case *ast.IndexExpr:
		if isArray(b.info.TypeOf(e.X)) {
			b.lhs(e.X)
		} else {
			b.expr(e.X)
		}
		b.expr(e.Index)
	case *ast.SelectorExpr:
		if sel, ok := b.info.Selections[e]; ok && !sel.Indirect() && !isPointer(b.info.TypeOf(e.X)) {
			b.lhs(e.X)
		} else {
			b.expr(e.X)
		}
	case *ast.StarExpr:
		b.expr(e.X)
	default:
		b.expr(e)
	}
}

func (b *builder) decl(d *ast.GenDecl) {
	if d.Tok != token.VAR {
		return
	}
	for _, spec := range d.Specs {
		vs := spec.(*ast.ValueSpec)
		for _, v := range vs.Values {
			b.expr(v)
		}
		for i, name := range vs.Names {
			switch {
			case len(vs.Values) == 0:
				b.write(name, nil, WriteZero)
			case len(vs.Values) == len(vs.Names):
				b.write(name, vs.Values[i], WriteExpr)
			default:
				b.write(name, nil, WriteUnknown)
			}
		}
	}
}

func (b *builder) assign(s *ast.AssignStmt) {
	for _, e := range s.Rhs {
		b.expr(e)
	}

	if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
		// x op= y
		b.lhs(s.Lhs[0])
		b.readWrite(s.Lhs[0], s.Tok, s.Rhs[0])
		return
	}

	for _, e := range s.Lhs {
		b.lhs(e)
	}

	kind := WriteExpr
	if len(s.Lhs) != len(s.Rhs) || (len(s.Lhs) > 1 && b.readsAssigned(s)) {
		kind = WriteUnknown
	}
	for i, e := range s.Lhs {
		var value ast.Expr
		if kind == WriteExpr {
			value = s.Rhs[i]
		}
		b.write(e, value, kind)
	}
}

// readsAssigned reports whether a right-hand side of a parallel assignment
// mentions a variable assigned by it, as in a, b = b, a.
func (b *builder) readsAssigned(s *ast.AssignStmt) bool {
	assigned := make(map[types.Object]bool)
	for _, e := range s.Lhs {
		if id, ok := unparen(e).(*ast.Ident); ok {
			if obj := b.objOf(id); obj != nil {
				assigned[obj] = true
			}
		}
	}

	found := false
	for _, e := range s.Rhs {
		ast.Inspect(e, func(n ast.Node) bool {
			if id, ok := n.(*ast.Ident); ok && assigned[b.info.Uses[id]] {
				found = true
			}
			return !found
		})
	}
	return found
}

func (b *builder) incDec(s *ast.IncDecStmt) {
	b.lhs(s.X)
	b.readWrite(s.X, s.Tok, nil)
}

func (b *builder) readWrite(target ast.Expr, op token.Token, value ast.Expr) {
	target = unparen(target)
	rw := &ReadWrite{
		node:   b.mk(target),
		Target: target,
		Op:     op,
		Value:  value,
	}
	if id, ok := target.(*ast.Ident); ok {
		rw.Var, _ = b.vars.Lookup(b.info.Uses[id])
	}
	b.emit(rw)
}

func (b *builder) branch(s *ast.BranchStmt) {
	switch s.Tok {
	case token.BREAK:
		g := b.jump(&Goto{b.mk(s), s})
		t := b.findTarget(s.Label, false)
		t.breaks = append(t.breaks, exit{g, Fallthrough})

	case token.CONTINUE:
		g := b.jump(&Goto{b.mk(s), s})
		t := b.findTarget(s.Label, true)
		t.continues = append(t.continues, exit{g, Fallthrough})

	case token.GOTO:
		g := b.jump(&Goto{b.mk(s), s})
		if to, ok := b.labels[s.Label.Name]; ok {
			b.g.addEdge(g, to, Fallthrough)
		} else {
			b.gotos[s.Label.Name] = append(b.gotos[s.Label.Name], exit{g, Fallthrough})
		}

	case token.FALLTHROUGH:
		g := b.jump(&Goto{b.mk(s), s})
		b.fallthroughs = append(b.fallthroughs, exit{g, Fallthrough})
	}
}

// findTarget resolves the statement a break or continue leaves.
func (b *builder) findTarget(label *ast.Ident, loop bool) *target {
	for i := len(b.targets) - 1; i >= 0; i-- {
		t := b.targets[i]
		if label != nil {
			if t.label == label.Name {
				return t
			}
		} else if t.loop || !loop {
			return t
		}
	}
	panic(fmt.Errorf("%w: no target for branch", errUnresolvedBranches))
}

func (b *builder) pushTarget(s ast.Stmt, loop bool) *target {
	t := &target{label: b.labelOf[s], loop: loop}
	b.targets = append(b.targets, t)
	return t
}

func (b *builder) popTarget() {
	b.targets = b.targets[:len(b.targets)-1]
}

// cond emits the condition node and returns it.
func (b *builder) cond(syntax ast.Node, e ast.Expr) NodeID {
	return b.jump(&Cond{node: b.mk(syntax), Expr: e})
}

func (b *builder) ifStmt(s *ast.IfStmt) {
	b.emit(&Stmt{b.mk(s), s})
	if s.Init != nil {
		b.stmt(s.Init)
	}
	b.expr(s.Cond)
	c := b.cond(s, s.Cond)

	b.pending = []exit{{c, Then}}
	b.stmt(s.Body)
	thenExits := b.take()

	b.pending = []exit{{c, Else}}
	if s.Else != nil {
		b.stmt(s.Else)
	}
	b.pending = append(b.pending, thenExits...)
}

func (b *builder) forStmt(s *ast.ForStmt) {
	b.emit(&Stmt{b.mk(s), s})
	if s.Init != nil {
		b.stmt(s.Init)
	}

	t := b.pushTarget(s, true)
	head := b.next()
	c := NoNode
	if s.Cond != nil {
		b.expr(s.Cond)
		c = b.cond(s, s.Cond)
		b.pending = []exit{{c, Then}}
	}

	b.stmt(s.Body)

	post := b.next()
	if s.Post != nil {
		b.simple(s.Post)
	}
	b.edgeTo(b.take(), head)

	if b.next() == post {
		// No post statement nodes, continue re-evaluates the condition.
		post = head
	}
	b.edgeTo(t.continues, post)
	b.popTarget()

	b.pending = t.breaks
	if c != NoNode {
		b.pending = append(b.pending, exit{c, Else})
	}
}

func (b *builder) rangeStmt(s *ast.RangeStmt) {
	b.emit(&Stmt{b.mk(s), s})
	b.expr(s.X)

	t := b.pushTarget(s, true)
	head := b.jump(&Cond{node: b.mk(s), Expr: s.X, Range: true})
	b.pending = []exit{{head, Then}}

	for _, e := range []ast.Expr{s.Key, s.Value} {
		if e == nil {
			continue
		}
		if s.Tok == token.ASSIGN {
			b.lhs(e)
		}
		b.write(e, nil, WriteUnknown)
	}

	b.stmt(s.Body)
	b.edgeTo(b.take(), head)
	b.edgeTo(t.continues, head)
	b.popTarget()

	b.pending = append(t.breaks, exit{head, Else})
}

// clauses lays out the clauses of an expression or type switch. test emits
// the case tests of a clause and returns their THEN exits, leaving the ELSE
// exit of the last test pending. enter emits the nodes at the start of every
// clause body.
func (b *builder) clauses(s ast.Stmt, body *ast.BlockStmt, test func(*ast.CaseClause) []exit, enter func(*ast.CaseClause)) {
	t := b.pushTarget(s, false)

	// The dispatch jumps to the first case clause, skipping default.
	dispatch := []exit{{b.jump(&Goto{b.mk(s), s}), Fallthrough}}
	var fall []exit
	defaultEntry := NoNode

	for _, stmt := range body.List {
		cc := stmt.(*ast.CaseClause)

		if cc.List == nil {
			// Only fallthrough and the final dispatch enter default.
			b.pending = fall
			defaultEntry = b.emit(&Stmt{b.mk(cc), cc})
		} else {
			b.pending = dispatch
			b.emit(&Stmt{b.mk(cc), cc})
			entry := test(cc)
			dispatch = b.take()
			b.pending = append(entry, fall...)
		}
		fall = nil
		enter(cc)
		b.stmts(cc.Body)

		fall, b.fallthroughs = b.fallthroughs, nil
		t.breaks = append(t.breaks, b.take()...)
	}

	if defaultEntry != NoNode {
		b.edgeTo(dispatch, defaultEntry)
	} else {
		t.breaks = append(t.breaks, dispatch...)
	}
	b.popTarget()

	b.pending = t.breaks
}

// caseTests emits one COND per case expression. All THEN exits enter the
// clause body, every ELSE moves to the next test.
func (b *builder) caseTests(cc *ast.CaseClause, test func(ast.Expr) ast.Expr) (thens []exit) {
	for _, e := range cc.List {
		c := b.cond(e, test(e))
		thens = append(thens, exit{c, Then})
		b.pending = []exit{{c, Else}}
	}
	return
}

func (b *builder) switchStmt(s *ast.SwitchStmt) {
	b.emit(&Stmt{b.mk(s), s})
	if s.Init != nil {
		b.stmt(s.Init)
	}
	b.expr(s.Tag)

	b.clauses(s, s.Body, func(cc *ast.CaseClause) []exit {
		return b.caseTests(cc, func(e ast.Expr) ast.Expr {
			b.expr(e)
			if s.Tag == nil {
				return e
			}
			return &ast.BinaryExpr{X: s.Tag, OpPos: e.Pos(), Op: token.EQL, Y: e}
		})
	}, func(*ast.CaseClause) {})
}

func (b *builder) typeSwitchStmt(s *ast.TypeSwitchStmt) {
	b.emit(&Stmt{b.mk(s), s})
	if s.Init != nil {
		b.stmt(s.Init)
	}

	var (
		bound  *ast.Ident
		assert *ast.TypeAssertExpr
	)
	switch a := s.Assign.(type) {
	case *ast.ExprStmt:
		assert = a.X.(*ast.TypeAssertExpr)
	case *ast.AssignStmt:
		bound = a.Lhs[0].(*ast.Ident)
		assert = a.Rhs[0].(*ast.TypeAssertExpr)
	}
	b.expr(assert.X)

	b.clauses(s, s.Body, func(cc *ast.CaseClause) []exit {
		return b.caseTests(cc, func(e ast.Expr) ast.Expr {
			if id, ok := e.(*ast.Ident); ok && isNil(b.info.Uses[id]) {
				return &ast.BinaryExpr{X: assert.X, OpPos: e.Pos(), Op: token.EQL, Y: e}
			}
			return &ast.TypeAssertExpr{X: assert.X, Lparen: e.Pos(), Type: e, Rparen: e.End()}
		})
	}, func(cc *ast.CaseClause) {
		if bound == nil {
			return
		}
		obj := b.info.Implicits[cc]
		if obj == nil {
			return
		}
		w := &Write{
			node:   b.mk(cc),
			Target: bound,
			Type:   obj.Type(),
			Init:   WriteUnknown,
		}
		w.Var, _ = b.vars.Lookup(obj)
		b.emit(w)
	})
}

func (b *builder) selectStmt(s *ast.SelectStmt) {
	b.emit(&Stmt{b.mk(s), s})

	t := b.pushTarget(s, false)
	g := b.jump(&Goto{b.mk(s), s})

	for _, stmt := range s.Body.List {
		cc := stmt.(*ast.CommClause)
		b.pending = []exit{{g, Fallthrough}}
		b.emit(&Stmt{b.mk(cc), cc})
		if cc.Comm != nil {
			b.stmt(cc.Comm)
		}
		b.stmts(cc.Body)
		t.breaks = append(t.breaks, b.take()...)
	}
	b.popTarget()

	b.pending = t.breaks
}

// callOperands evaluates the function value and arguments of a deferred or
// spawned call.
func (b *builder) callOperands(call *ast.CallExpr) {
	b.expr(call.Fun)
	for _, arg := range call.Args {
		b.expr(arg)
	}
}

func (b *builder) expr(e ast.Expr) {
	if e == nil {
		return
	}
	if tv, ok := b.info.Types[e]; ok && (tv.IsType() || tv.Value != nil) {
		// Types and constants read no variables.
		return
	}

	switch e := e.(type) {
	case *ast.Ident:
		if v, ok := b.info.Uses[e].(*types.Var); ok && !v.IsField() {
			r := &Read{node: b.mk(e), Ident: e}
			r.Var, _ = b.vars.Lookup(v)
			b.emit(r)
		}

	case *ast.ParenExpr:
		b.expr(e.X)

	case *ast.SelectorExpr:
		if _, ok := b.info.Selections[e]; ok {
			b.expr(e.X)
		} else {
			// Qualified identifier.
			b.expr(e.Sel)
		}

	case *ast.IndexExpr:
		b.expr(e.X)
		b.expr(e.Index)

	case *ast.IndexListExpr:
		b.expr(e.X)

	case *ast.SliceExpr:
		b.expr(e.X)
		b.expr(e.Low)
		b.expr(e.High)
		b.expr(e.Max)

	case *ast.StarExpr:
		b.expr(e.X)

	case *ast.UnaryExpr:
		if e.Op == token.AND {
			b.lhs(e.X)
		} else {
			b.expr(e.X)
		}

	case *ast.BinaryExpr:
		if e.Op == token.LAND || e.Op == token.LOR {
			b.shortCircuit(e)
		} else {
			b.expr(e.X)
			b.expr(e.Y)
		}

	case *ast.CallExpr:
		b.call(e)

	case *ast.CompositeLit:
		_, isStruct := deref(b.info.TypeOf(e)).Underlying().(*types.Struct)
		for _, elt := range e.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if !isStruct {
					b.expr(kv.Key)
				}
				b.expr(kv.Value)
			} else {
				b.expr(elt)
			}
		}

	case *ast.KeyValueExpr:
		b.expr(e.Value)

	case *ast.TypeAssertExpr:
		b.expr(e.X)

	case *ast.FuncLit, *ast.BasicLit:
	}
}

// shortCircuit lays out && and || with a COND on the left operand.
func (b *builder) shortCircuit(e *ast.BinaryExpr) {
	b.expr(e.X)
	c := b.cond(e, e.X)

	taken, skipped := Then, Else
	if e.Op == token.LOR {
		taken, skipped = Else, Then
	}

	b.pending = []exit{{c, taken}}
	b.expr(e.Y)
	rhs := b.take()
	b.pending = append([]exit{{c, skipped}}, rhs...)
}

func (b *builder) call(e *ast.CallExpr) {
	fun := unparen(e.Fun)

	if tv, ok := b.info.Types[fun]; ok && tv.IsType() {
		// Conversion.
		for _, arg := range e.Args {
			b.expr(arg)
		}
		return
	}

	if id, ok := fun.(*ast.Ident); ok {
		if _, builtin := b.info.Uses[id].(*types.Builtin); builtin {
			for _, arg := range e.Args {
				b.expr(arg)
			}
			if id.Name == "panic" {
				th := b.jump(&Throw{b.mk(e), e})
				b.throws = append(b.throws, exit{th, Fallthrough})
				return
			}
			b.emit(&Call{node: b.mk(e), Call: e, Name: id.Name})
			return
		}
	}

	b.expr(fun)
	for _, arg := range e.Args {
		b.expr(arg)
	}

	ot := b.jump(&OptThrow{b.mk(e), e})
	b.pending = []exit{{ot, NoThrow}}
	b.throws = append(b.throws, exit{ot, Re})
	b.emit(&Call{node: b.mk(e), Call: e, Name: callName(fun)})
}

func callName(fun ast.Expr) string {
	if _, ok := fun.(*ast.FuncLit); ok {
		return "func literal"
	}
	return types.ExprString(fun)
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

func isNil(obj types.Object) bool {
	_, ok := obj.(*types.Nil)
	return ok
}

func deref(t types.Type) types.Type {
	if t == nil {
		return types.Typ[types.Invalid]
	}
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
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
