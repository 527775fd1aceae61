package cfg

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/cs-au-dk/gflow/analysis/variable"
)

var (
	errInternal           = errors.New("internal error")
	errUnsupportedSyntax  = errors.New("unsupported syntax")
	errUnresolvedBranches = errors.New("unresolved branch statements")
)

// NodeID addresses a node in the arena of a Cfg.
type NodeID int

// EdgeID addresses an edge in the arena of a Cfg.
type EdgeID int

// NoNode is the source of the entry edge.
const NoNode NodeID = -1

// Label is the role of an edge.
type Label uint8

const (
	// Fallthrough edges carry no label.
	Fallthrough Label = iota
	Then
	Else
	// NoThrow leaves an OPTTHROW node when the call returns normally.
	NoThrow
	// Re leaves an OPTTHROW node when the call panics.
	Re
)

var labelNames = [...]string{
	Fallthrough: "",
	Then:        "THEN",
	Else:        "ELSE",
	NoThrow:     "NOTHROW",
	Re:          "RE",
}

func (l Label) String() string {
	return labelNames[l]
}

// Edge is a directed edge between two nodes.
type Edge struct {
	ID       EdgeID
	From, To NodeID
	Label    Label
}

// Node is implemented by the node types of this package only.
type Node interface {
	ID() NodeID
	// Syntax is the syntax tree the node was built for.
	Syntax() ast.Node
	// String renders the node kind and its operands.
	String() string

	isNode()
}

type node struct {
	id     NodeID
	syntax ast.Node
}

func (n *node) ID() NodeID       { return n.id }
func (n *node) Syntax() ast.Node { return n.syntax }
func (*node) isNode()            {}

type (
	// Block marks the start of a block statement.
	Block struct {
		node
		Stmt *ast.BlockStmt
	}

	// Stmt marks the start of any other statement.
	Stmt struct {
		node
		Stmt ast.Stmt
	}

	// Write assigns a new value to Target.
	Write struct {
		node
		Target ast.Expr
		// Var is the tracked variable named by Target, or nil.
		Var *variable.Variable
		// Value is the assigned expression when Init is WriteExpr.
		Value ast.Expr
		// Type is the type of Target.
		Type types.Type
		Init WriteKind
	}

	// Read marks a use of a variable.
	Read struct {
		node
		Ident *ast.Ident
		// Var is the tracked variable, or nil.
		Var *variable.Variable
	}

	// ReadWrite updates Target in place: x++, x--, x op= Value.
	ReadWrite struct {
		node
		Target ast.Expr
		Var    *variable.Variable
		Op     token.Token
		Value  ast.Expr
	}

	// Cond branches on Expr with THEN and ELSE edges.
	Cond struct {
		node
		Expr ast.Expr
		// Range is set for the loop test of a range statement. The THEN edge
		// enters the next iteration, Expr is the ranged operand.
		Range bool
	}

	// Call performs a call that returned normally.
	Call struct {
		node
		Call *ast.CallExpr
		Name string
	}

	// OptThrow precedes every call that may panic.
	OptThrow struct {
		node
		Call *ast.CallExpr
	}

	// Throw is a call to panic.
	Throw struct {
		node
		Call *ast.CallExpr
	}

	// Goto is an unconditional jump: return, branch statements and the
	// dispatch of switch and select statements.
	Goto struct {
		node
		Stmt ast.Stmt
	}

	// End is the single exit of the function.
	End struct {
		node
	}
)

// WriteKind describes where the written value comes from.
type WriteKind uint8

const (
	// WriteExpr writes the value of Write.Value.
	WriteExpr WriteKind = iota
	// WriteZero writes the zero value of Write.Type.
	WriteZero
	// WriteUnknown writes a value that has no expression of its own, e.g.
	// one result of a multi-valued call.
	WriteUnknown
)

func (*Block) String() string { return "BLOCK" }
func (*Stmt) String() string  { return "STMT" }
func (*Goto) String() string  { return "GOTO" }
func (*Throw) String() string { return "THROW" }
func (*End) String() string   { return "END" }

func (n *Write) String() string {
	var value string
	switch n.Init {
	case WriteExpr:
		value = types.ExprString(n.Value)
	case WriteZero:
		value = zeroString(n.Type)
	case WriteUnknown:
		value = "?"
	}
	return fmt.Sprintf("WRITE(%s, %s)", types.ExprString(n.Target), value)
}

func (n *Read) String() string {
	return fmt.Sprintf("READ(%s)", n.Ident.Name)
}

func (n *ReadWrite) String() string {
	op := n.Op.String()
	if n.Value != nil {
		op += " " + types.ExprString(n.Value)
	}
	return fmt.Sprintf("READWRITE(%s, %s)", types.ExprString(n.Target), op)
}

func (n *Cond) String() string {
	if n.Range {
		return fmt.Sprintf("COND (range %s)", types.ExprString(n.Expr))
	}
	return fmt.Sprintf("COND (%s)", types.ExprString(n.Expr))
}

func (n *Call) String() string {
	return fmt.Sprintf("CALL(%s)", n.Name)
}

func (n *OptThrow) String() string {
	return fmt.Sprintf("OPTTHROW(%s)", types.ExprString(n.Call))
}

// zeroString renders the zero value of t.
func zeroString(t types.Type) string {
	switch variable.KindOf(t) {
	case variable.Int, variable.Complex:
		return "0"
	case variable.Float, variable.Double:
		return "0.0"
	case variable.Bool:
		return "false"
	case variable.String:
		return `""`
	case variable.Reference:
		return "nil"
	}
	return types.TypeString(t, func(p *types.Package) string { return p.Name() }) + "{}"
}
