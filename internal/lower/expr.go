package lower

import (
	"fmt"

	"github.com/roach88/hirssa/internal/ast"
	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// expr lowers e into the current block and returns the temporary holding
// its value. Operands are evaluated left to right.
func (l *lowerer) expr(e ast.Expr) (hir.Place, error) {
	at := loc(e.Position())
	switch e := e.(type) {
	case *ast.IntLit:
		return l.emit(at, hir.Int(e.Value)), nil
	case *ast.StrLit:
		return l.emit(at, hir.String(e.Value)), nil
	case *ast.BoolLit:
		return l.emit(at, hir.Bool(e.Value)), nil

	case *ast.Ref:
		b := l.resolve(e.Name)
		if b == nil {
			return l.emit(at, &hir.LoadGlobal{Name: e.Name}), nil
		}
		place := hir.Place{Identifier: b.ident, Effect: hir.EffectRead, Loc: at}
		if b.context {
			return l.emit(at, &hir.LoadContext{Place: place}), nil
		}
		return l.emit(at, &hir.LoadLocal{Place: place}), nil

	case *ast.Binary:
		left, err := l.expr(e.Left)
		if err != nil {
			return hir.Place{}, err
		}
		right, err := l.expr(e.Right)
		if err != nil {
			return hir.Place{}, err
		}
		return l.emit(at, &hir.Binary{Op: e.Op, Left: left, Right: right}), nil

	case *ast.Unary:
		operand, err := l.expr(e.Operand)
		if err != nil {
			return hir.Place{}, err
		}
		return l.emit(at, &hir.Unary{Op: e.Op, Operand: operand}), nil

	case *ast.Call:
		callee, err := l.expr(e.Callee)
		if err != nil {
			return hir.Place{}, err
		}
		args := make([]hir.Place, 0, len(e.Args))
		for _, a := range e.Args {
			arg, err := l.expr(a)
			if err != nil {
				return hir.Place{}, err
			}
			args = append(args, arg)
		}
		return l.emit(at, &hir.Call{Callee: callee, Args: args}), nil

	case *ast.FuncLit:
		return l.closure(e, at)

	default:
		return hir.Place{}, fmt.Errorf("lower: unexpected expression %T", e)
	}
}

// assign lowers `name = value`.
func (l *lowerer) assign(name string, value ast.Expr, at hir.Location) (hir.Place, error) {
	v, err := l.expr(value)
	if err != nil {
		return hir.Place{}, err
	}
	b := l.resolve(name)
	if b == nil {
		return l.emit(at, &hir.StoreGlobal{Name: name, Value: v}), nil
	}
	place := hir.Place{Identifier: b.ident, Effect: hir.EffectStore, Loc: at}
	if b.context {
		return l.emit(at, &hir.StoreContext{Kind: hir.InstructionReassign, Place: place, Value: v}), nil
	}
	return l.emit(at, &hir.StoreLocal{Kind: hir.InstructionReassign, Place: place, Value: v}), nil
}

// closure lowers a function literal with its own builder. Diagnostics from
// the nested body are folded into this function's, so the caller sees one
// combined report.
func (l *lowerer) closure(e *ast.FuncLit, at hir.Location) (hir.Place, error) {
	inner := l.child()
	fn, err := inner.function(e.Func)
	if err != nil {
		if diagnostics.IsInvariant(err) {
			return hir.Place{}, err
		}
		for _, d := range diagnostics.Flatten(err) {
			l.b.Record(d)
		}
		return l.emit(at, hir.Undefined()), nil
	}
	return l.emit(at, &hir.FunctionExpression{Name: e.Func.Name, Func: fn}), nil
}
