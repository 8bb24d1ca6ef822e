package ast

import "fmt"

// Inspect traverses the tree rooted at n in source order, calling fn for
// each node. If fn returns false the node's children are skipped. Nested
// function literals are entered like any other expression.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Function:
		inspectStmts(n.Body, fn)
	case *Let:
		inspectExpr(n.Value, fn)
	case *Assign:
		inspectExpr(n.Value, fn)
	case *ExprStmt:
		inspectExpr(n.X, fn)
	case *If:
		inspectExpr(n.Test, fn)
		inspectStmts(n.Then, fn)
		inspectStmts(n.Else, fn)
	case *While:
		inspectExpr(n.Test, fn)
		inspectStmts(n.Body, fn)
	case *DoWhile:
		inspectStmts(n.Body, fn)
		inspectExpr(n.Test, fn)
	case *For:
		if n.Init != nil {
			Inspect(n.Init, fn)
		}
		inspectExpr(n.Test, fn)
		if n.Update != nil {
			Inspect(n.Update, fn)
		}
		inspectStmts(n.Body, fn)
	case *Return:
		inspectExpr(n.Value, fn)
	case *Throw:
		inspectExpr(n.Value, fn)
	case *Try:
		inspectStmts(n.Block, fn)
		if n.Catch != nil {
			inspectStmts(n.Catch.Body, fn)
		}
	case *Labeled:
		inspectStmts(n.Body, fn)
	case *Switch:
		inspectExpr(n.Test, fn)
		for _, c := range n.Cases {
			inspectExpr(c.Test, fn)
			inspectStmts(c.Body, fn)
		}
	case *Binary:
		inspectExpr(n.Left, fn)
		inspectExpr(n.Right, fn)
	case *Unary:
		inspectExpr(n.Operand, fn)
	case *Call:
		inspectExpr(n.Callee, fn)
		for _, a := range n.Args {
			inspectExpr(a, fn)
		}
	case *FuncLit:
		Inspect(n.Func, fn)
	case *Break, *Continue, *IntLit, *StrLit, *BoolLit, *Ref:
	default:
		panic(fmt.Sprintf("ast: unexpected node %T", n))
	}
}

func inspectStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

func inspectExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Inspect(e, fn)
	}
}
