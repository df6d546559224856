package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result pushed on the logical stack.
type Expr interface {
	exprNode()
	String() string
}

// IntLiteral is an integer constant, kept as its source text.
//
//	exit(42);
//	     ^^  IntLiteral{Value: "42"}
type IntLiteral struct {
	Value string
}

func (*IntLiteral) exprNode()        {}
func (l *IntLiteral) String() string { return l.Value }

// Identifier is a read of a named variable.
//
//	exit(x);
//	     ^  Identifier{Name: "x"}
type Identifier struct {
	Name string
}

func (*Identifier) exprNode()        {}
func (i *Identifier) String() string { return i.Name }

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// ExitStmt represents  exit(expr);
type ExitStmt struct {
	Expr Expr
}

func (*ExitStmt) stmtNode() {}
func (e *ExitStmt) String() string {
	return fmt.Sprintf("ExitStmt(%s)", e.Expr)
}

// LetStmt represents  let name = expr;
type LetStmt struct {
	Name string
	Expr Expr
}

func (*LetStmt) stmtNode() {}
func (l *LetStmt) String() string {
	return fmt.Sprintf("LetStmt(%s = %s)", l.Name, l.Expr)
}

// Program is the root of the tree: statements in source order.
type Program struct {
	Stmts []Stmt
}

func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Program(len=%d)", len(p.Stmts))
	for _, s := range p.Stmts {
		sb.WriteString("\n  ")
		sb.WriteString(s.String())
	}
	return sb.String()
}
