package ast

import "fmt"

// Pos is a source position. The zero Pos means "no position".
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	switch {
	case !p.IsValid():
		return "-"
	case p.File == "":
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	default:
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
}

// Node is any statement, expression or function.
type Node interface {
	Position() Pos
}

// Stmt is a sealed interface over statements.
type Stmt interface {
	Node
	stmtNode() // Sealed
}

// Expr is a sealed interface over expressions.
type Expr interface {
	Node
	exprNode() // Sealed
}

// Param is a named function parameter.
type Param struct {
	Name string
	Pos  Pos
}

// Function is a named top-level function or an anonymous function literal.
type Function struct {
	Name   string
	Params []Param
	Body   []Stmt
	Pos    Pos
}

func (f *Function) Position() Pos { return f.Pos }

// Statements.

// Let declares Name, optionally initialized. Const forbids reassignment.
type Let struct {
	Name  string
	Value Expr // nil when uninitialized
	Const bool
	Pos   Pos
}

// Assign reassigns an existing binding, or a global if none is in scope.
type Assign struct {
	Name  string
	Value Expr
	Pos   Pos
}

// ExprStmt evaluates X for its effects.
type ExprStmt struct {
	X   Expr
	Pos Pos
}

type If struct {
	Test Expr
	Then []Stmt
	Else []Stmt // nil when absent
	Pos  Pos
}

type While struct {
	Label string
	Test  Expr
	Body  []Stmt
	Pos   Pos
}

type DoWhile struct {
	Label string
	Body  []Stmt
	Test  Expr
	Pos   Pos
}

// For is a C-style loop. Init and Update are nil when absent; a nil Test
// loops until a break.
type For struct {
	Label  string
	Init   Stmt
	Test   Expr
	Update Stmt
	Body   []Stmt
	Pos    Pos
}

type Break struct {
	Label string
	Pos   Pos
}

type Continue struct {
	Label string
	Pos   Pos
}

type Return struct {
	Value Expr // nil for a bare return
	Pos   Pos
}

type Throw struct {
	Value Expr
	Pos   Pos
}

// Catch is the handler of a Try. Param is empty when the exception is not bound.
type Catch struct {
	Param string
	Body  []Stmt
	Pos   Pos
}

// Try guards Block. A nil Catch swallows nothing: the region simply runs.
type Try struct {
	Block []Stmt
	Catch *Catch
	Pos   Pos
}

// Labeled names a block so nested code can break out of it.
type Labeled struct {
	Name string
	Body []Stmt
	Pos  Pos
}

// Case is one switch arm; a nil Test is the default arm.
type Case struct {
	Test Expr
	Body []Stmt
	Pos  Pos
}

type Switch struct {
	Label string
	Test  Expr
	Cases []Case
	Pos   Pos
}

// Expressions.

type IntLit struct {
	Value int64
	Pos   Pos
}

type StrLit struct {
	Value string
	Pos   Pos
}

type BoolLit struct {
	Value bool
	Pos   Pos
}

// Ref reads a variable by name.
type Ref struct {
	Name string
	Pos  Pos
}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
	Pos   Pos
}

type Unary struct {
	Op      string
	Operand Expr
	Pos     Pos
}

type Call struct {
	Callee Expr
	Args   []Expr
	Pos    Pos
}

// FuncLit is a function expression. It may capture variables of the
// functions enclosing it.
type FuncLit struct {
	Func *Function
	Pos  Pos
}

func (s *Let) Position() Pos      { return s.Pos }
func (s *Assign) Position() Pos   { return s.Pos }
func (s *ExprStmt) Position() Pos { return s.Pos }
func (s *If) Position() Pos       { return s.Pos }
func (s *While) Position() Pos    { return s.Pos }
func (s *DoWhile) Position() Pos  { return s.Pos }
func (s *For) Position() Pos      { return s.Pos }
func (s *Break) Position() Pos    { return s.Pos }
func (s *Continue) Position() Pos { return s.Pos }
func (s *Return) Position() Pos   { return s.Pos }
func (s *Throw) Position() Pos    { return s.Pos }
func (s *Try) Position() Pos      { return s.Pos }
func (s *Labeled) Position() Pos  { return s.Pos }
func (s *Switch) Position() Pos   { return s.Pos }

func (*Let) stmtNode()      {}
func (*Assign) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*DoWhile) stmtNode()  {}
func (*For) stmtNode()      {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Throw) stmtNode()    {}
func (*Try) stmtNode()      {}
func (*Labeled) stmtNode()  {}
func (*Switch) stmtNode()   {}

func (e *IntLit) Position() Pos  { return e.Pos }
func (e *StrLit) Position() Pos  { return e.Pos }
func (e *BoolLit) Position() Pos { return e.Pos }
func (e *Ref) Position() Pos     { return e.Pos }
func (e *Binary) Position() Pos  { return e.Pos }
func (e *Unary) Position() Pos   { return e.Pos }
func (e *Call) Position() Pos    { return e.Pos }
func (e *FuncLit) Position() Pos { return e.Pos }

func (*IntLit) exprNode()  {}
func (*StrLit) exprNode()  {}
func (*BoolLit) exprNode() {}
func (*Ref) exprNode()     {}
func (*Binary) exprNode()  {}
func (*Unary) exprNode()   {}
func (*Call) exprNode()    {}
func (*FuncLit) exprNode() {}
