package lower

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/hirssa/internal/ast"
)

// declaration keys are *ast.Let, *ast.Param or *ast.Catch.
type declKey any

type declInfo struct {
	owner      *ast.Function
	captured   bool
	reassigned bool
}

// analyzer resolves names ahead of lowering to find context variables. It
// must use exactly the scoping rules of lowerer.
type analyzer struct {
	decls  map[declKey]*declInfo
	scopes []map[string]declKey
	fns    []*ast.Function
}

// contextDecls returns the declarations in fn (including nested function
// literals) that are captured by a closure and reassigned anywhere.
func contextDecls(fn *ast.Function) mapset.Set[declKey] {
	a := &analyzer{decls: make(map[declKey]*declInfo)}
	a.function(fn)

	out := mapset.NewThreadUnsafeSet[declKey]()
	for key, info := range a.decls {
		if info.captured && info.reassigned {
			out.Add(key)
		}
	}
	return out
}

func (a *analyzer) current() *ast.Function { return a.fns[len(a.fns)-1] }

func (a *analyzer) push() { a.scopes = append(a.scopes, make(map[string]declKey)) }
func (a *analyzer) pop()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *analyzer) declare(name string, key declKey) {
	a.scopes[len(a.scopes)-1][name] = key
	a.decls[key] = &declInfo{owner: a.current()}
}

func (a *analyzer) resolve(name string) *declInfo {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if key, ok := a.scopes[i][name]; ok {
			info := a.decls[key]
			if info.owner != a.current() {
				info.captured = true
			}
			return info
		}
	}
	return nil
}

func (a *analyzer) function(fn *ast.Function) {
	a.fns = append(a.fns, fn)
	a.push()
	for i := range fn.Params {
		a.declare(fn.Params[i].Name, &fn.Params[i])
	}
	a.stmts(fn.Body)
	a.pop()
	a.fns = a.fns[:len(a.fns)-1]
}

func (a *analyzer) block(stmts []ast.Stmt) {
	a.push()
	a.stmts(stmts)
	a.pop()
}

func (a *analyzer) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		a.stmt(s)
	}
}

func (a *analyzer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Let:
		a.expr(s.Value)
		a.declare(s.Name, s)
	case *ast.Assign:
		a.expr(s.Value)
		if info := a.resolve(s.Name); info != nil {
			info.reassigned = true
		}
	case *ast.ExprStmt:
		a.expr(s.X)
	case *ast.If:
		a.block(s.Then)
		if s.Else != nil {
			a.block(s.Else)
		}
		a.expr(s.Test)
	case *ast.While:
		a.block(s.Body)
		a.expr(s.Test)
	case *ast.DoWhile:
		a.block(s.Body)
		a.expr(s.Test)
	case *ast.For:
		a.push()
		if s.Init != nil {
			a.stmt(s.Init)
		}
		if s.Update != nil {
			a.stmt(s.Update)
		}
		a.block(s.Body)
		a.expr(s.Test)
		a.pop()
	case *ast.Return:
		a.expr(s.Value)
	case *ast.Throw:
		a.expr(s.Value)
	case *ast.Try:
		if s.Catch != nil {
			a.push()
			if s.Catch.Param != "" {
				a.declare(s.Catch.Param, s.Catch)
			}
			a.stmts(s.Catch.Body)
			a.pop()
		}
		a.block(s.Block)
	case *ast.Labeled:
		a.block(s.Body)
	case *ast.Switch:
		for i := len(s.Cases) - 1; i >= 0; i-- {
			a.block(s.Cases[i].Body)
			a.expr(s.Cases[i].Test)
		}
		a.expr(s.Test)
	case *ast.Break, *ast.Continue:
	}
}

func (a *analyzer) expr(e ast.Expr) {
	switch e := e.(type) {
	case nil:
	case *ast.Ref:
		a.resolve(e.Name)
	case *ast.Binary:
		a.expr(e.Left)
		a.expr(e.Right)
	case *ast.Unary:
		a.expr(e.Operand)
	case *ast.Call:
		a.expr(e.Callee)
		for _, arg := range e.Args {
			a.expr(arg)
		}
	case *ast.FuncLit:
		a.function(e.Func)
	}
}
