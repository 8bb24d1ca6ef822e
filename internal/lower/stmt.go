package lower

import (
	"fmt"
	"slices"

	"github.com/roach88/hirssa/internal/ast"
	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// block lowers stmts in a fresh lexical scope.
func (l *lowerer) block(stmts []ast.Stmt) error {
	l.pushScope()
	defer l.popScope()
	for _, s := range stmts {
		if err := l.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Let:
		return l.lowerLet(s)
	case *ast.Assign:
		_, err := l.assign(s.Name, s.Value, loc(s.Pos))
		return err
	case *ast.ExprStmt:
		_, err := l.expr(s.X)
		return err
	case *ast.If:
		return l.lowerIf(s)
	case *ast.While:
		return l.lowerWhile(s)
	case *ast.DoWhile:
		return l.lowerDoWhile(s)
	case *ast.For:
		return l.lowerFor(s)
	case *ast.Break:
		target, err := l.b.LookupBreak(s.Label)
		if err != nil {
			return err
		}
		l.b.Terminate(&hir.Goto{TerminalMeta: meta(loc(s.Pos)), Block: target, Variant: hir.GotoBreak}, hir.BlockKindBlock)
		return nil
	case *ast.Continue:
		target, err := l.b.LookupContinue(s.Label)
		if err != nil {
			return err
		}
		l.b.Terminate(&hir.Goto{TerminalMeta: meta(loc(s.Pos)), Block: target, Variant: hir.GotoContinue}, hir.BlockKindBlock)
		return nil
	case *ast.Return:
		return l.lowerReturn(s)
	case *ast.Throw:
		return l.lowerThrow(s)
	case *ast.Try:
		return l.lowerTry(s)
	case *ast.Labeled:
		return l.lowerLabeled(s)
	case *ast.Switch:
		return l.lowerSwitch(s)
	default:
		return fmt.Errorf("lower: unexpected statement %T", s)
	}
}

func (l *lowerer) lowerLet(s *ast.Let) error {
	at := loc(s.Pos)
	kind := hir.InstructionLet
	if s.Const {
		kind = hir.InstructionConst
	}

	var value *hir.Place
	if s.Value != nil {
		v, err := l.expr(s.Value)
		if err != nil {
			return err
		}
		value = &v
	}

	b := l.declare(s.Name, s, at)
	place := hir.Place{Identifier: b.ident, Effect: hir.EffectStore, Loc: at}
	switch {
	case b.context && value == nil:
		l.emit(at, &hir.DeclareContext{Kind: kind, Place: place})
	case b.context:
		l.emit(at, &hir.StoreContext{Kind: kind, Place: place, Value: *value})
	case value == nil:
		l.emit(at, &hir.DeclareLocal{Kind: kind, Place: place})
	default:
		l.emit(at, &hir.StoreLocal{Kind: kind, Place: place, Value: *value})
	}
	return nil
}

func (l *lowerer) lowerIf(s *ast.If) error {
	at := loc(s.Pos)
	conclusion := l.b.Reserve(l.b.CurrentBlockKind())

	consequent, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.block(s.Then)
		return &hir.Goto{TerminalMeta: meta(at), Block: conclusion.ID, Variant: hir.GotoBreak}, err
	})
	if err != nil {
		return err
	}

	alternate := conclusion.ID
	if s.Else != nil {
		alternate, err = l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
			err := l.block(s.Else)
			return &hir.Goto{TerminalMeta: meta(at), Block: conclusion.ID, Variant: hir.GotoBreak}, err
		})
		if err != nil {
			return err
		}
	}

	test, err := l.expr(s.Test)
	if err != nil {
		return err
	}
	l.b.TerminateWithContinuation(&hir.If{
		TerminalMeta: meta(at),
		Test:         test,
		Consequent:   consequent,
		Alternate:    alternate,
		Fallthrough:  conclusion.ID,
	}, conclusion)
	return nil
}

func (l *lowerer) lowerWhile(s *ast.While) error {
	at := loc(s.Pos)
	conditional := l.b.Reserve(hir.BlockKindLoop)
	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	loop, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.b.EnterLoop(s.Label, conditional.ID, continuation.ID, func() error {
			return l.block(s.Body)
		})
		return &hir.Goto{TerminalMeta: meta(at), Block: conditional.ID, Variant: hir.GotoContinue}, err
	})
	if err != nil {
		return err
	}

	l.b.TerminateWithContinuation(&hir.While{
		TerminalMeta: meta(at),
		Test:         conditional.ID,
		Loop:         loop,
		Fallthrough:  continuation.ID,
	}, conditional)

	test, err := l.expr(s.Test)
	if err != nil {
		return err
	}
	l.b.TerminateWithContinuation(&hir.Branch{
		TerminalMeta: meta(at),
		Test:         test,
		Consequent:   loop,
		Alternate:    continuation.ID,
		Fallthrough:  conditional.ID,
	}, continuation)
	return nil
}

func (l *lowerer) lowerDoWhile(s *ast.DoWhile) error {
	at := loc(s.Pos)
	conditional := l.b.Reserve(hir.BlockKindLoop)
	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	loop, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.b.EnterLoop(s.Label, conditional.ID, continuation.ID, func() error {
			return l.block(s.Body)
		})
		return &hir.Goto{TerminalMeta: meta(at), Block: conditional.ID, Variant: hir.GotoContinue}, err
	})
	if err != nil {
		return err
	}

	l.b.TerminateWithContinuation(&hir.DoWhile{
		TerminalMeta: meta(at),
		Loop:         loop,
		Test:         conditional.ID,
		Fallthrough:  continuation.ID,
	}, conditional)

	test, err := l.expr(s.Test)
	if err != nil {
		return err
	}
	l.b.TerminateWithContinuation(&hir.Branch{
		TerminalMeta: meta(at),
		Test:         test,
		Consequent:   loop,
		Alternate:    continuation.ID,
		Fallthrough:  conditional.ID,
	}, continuation)
	return nil
}

func (l *lowerer) lowerFor(s *ast.For) error {
	at := loc(s.Pos)
	testBlock := l.b.Reserve(hir.BlockKindLoop)
	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	// Bindings made by the init clause are visible to the whole loop.
	l.pushScope()
	defer l.popScope()

	var initBlock hir.BlockID
	var err error
	if s.Init == nil {
		wip := l.b.Reserve(hir.BlockKindLoop)
		l.b.Complete(wip, &hir.Goto{TerminalMeta: meta(at), Block: testBlock.ID, Variant: hir.GotoBreak})
		initBlock = wip.ID
	} else {
		initBlock, err = l.b.Enter(hir.BlockKindLoop, func(hir.BlockID) (hir.Terminal, error) {
			err := l.stmt(s.Init)
			return &hir.Goto{TerminalMeta: meta(at), Block: testBlock.ID, Variant: hir.GotoBreak}, err
		})
		if err != nil {
			return err
		}
	}

	updateBlock := hir.NoBlock
	if s.Update != nil {
		updateBlock, err = l.b.Enter(hir.BlockKindLoop, func(hir.BlockID) (hir.Terminal, error) {
			err := l.stmt(s.Update)
			return &hir.Goto{TerminalMeta: meta(at), Block: testBlock.ID, Variant: hir.GotoBreak}, err
		})
		if err != nil {
			return err
		}
	}

	continueTarget := testBlock.ID
	if updateBlock != hir.NoBlock {
		continueTarget = updateBlock
	}
	bodyBlock, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.b.EnterLoop(s.Label, continueTarget, continuation.ID, func() error {
			return l.block(s.Body)
		})
		return &hir.Goto{TerminalMeta: meta(at), Block: continueTarget, Variant: hir.GotoContinue}, err
	})
	if err != nil {
		return err
	}

	l.b.TerminateWithContinuation(&hir.For{
		TerminalMeta: meta(at),
		Init:         initBlock,
		Test:         testBlock.ID,
		Update:       updateBlock,
		Loop:         bodyBlock,
		Fallthrough:  continuation.ID,
	}, testBlock)

	var test hir.Place
	if s.Test == nil {
		test = l.emit(at, hir.Bool(true))
	} else if test, err = l.expr(s.Test); err != nil {
		return err
	}
	l.b.TerminateWithContinuation(&hir.Branch{
		TerminalMeta: meta(at),
		Test:         test,
		Consequent:   bodyBlock,
		Alternate:    continuation.ID,
		Fallthrough:  continuation.ID,
	}, continuation)
	return nil
}

func (l *lowerer) lowerReturn(s *ast.Return) error {
	at := loc(s.Pos)
	var value hir.Place
	if s.Value == nil {
		value = l.emit(at, hir.Undefined())
	} else {
		var err error
		if value, err = l.expr(s.Value); err != nil {
			return err
		}
	}
	l.b.Terminate(&hir.Return{TerminalMeta: meta(at), Variant: hir.ReturnExplicit, Value: value}, hir.BlockKindBlock)
	return nil
}

func (l *lowerer) lowerThrow(s *ast.Throw) error {
	at := loc(s.Pos)
	value, err := l.expr(s.Value)
	if err != nil {
		return err
	}
	if _, ok := l.b.ResolveThrowHandler(); ok {
		l.b.Record(diagnostics.Todo(diagnostics.ErrCodeThrowInTry, at,
			"throw inside of try/catch is not supported"))
	}
	l.b.Terminate(&hir.Throw{TerminalMeta: meta(at), Value: value}, hir.BlockKindBlock)
	return nil
}

func (l *lowerer) lowerTry(s *ast.Try) error {
	if s.Catch == nil {
		return l.block(s.Block)
	}
	at := loc(s.Pos)

	var handlerBinding *hir.Place
	if s.Catch.Param != "" {
		tmp := l.b.MakeTemporary(loc(s.Catch.Pos))
		handlerBinding = &tmp
		l.emit(at, &hir.DeclareLocal{Kind: hir.InstructionCatch, Place: tmp})
	}

	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	handler, err := l.b.Enter(hir.BlockKindCatch, func(hir.BlockID) (hir.Terminal, error) {
		l.pushScope()
		defer l.popScope()

		if handlerBinding != nil {
			cat := loc(s.Catch.Pos)
			b := l.declare(s.Catch.Param, s.Catch, cat)
			place := hir.Place{Identifier: b.ident, Effect: hir.EffectStore, Loc: cat}
			if b.context {
				l.emit(cat, &hir.StoreContext{Kind: hir.InstructionCatch, Place: place, Value: *handlerBinding})
			} else {
				l.emit(cat, &hir.StoreLocal{Kind: hir.InstructionCatch, Place: place, Value: *handlerBinding})
			}
		}
		for _, st := range s.Catch.Body {
			if err := l.stmt(st); err != nil {
				return nil, err
			}
		}
		return &hir.Goto{TerminalMeta: meta(at), Block: continuation.ID, Variant: hir.GotoBreak}, nil
	})
	if err != nil {
		return err
	}

	block, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.b.EnterTryCatch(handler, func() error {
			return l.block(s.Block)
		})
		return &hir.Goto{TerminalMeta: meta(at), Block: continuation.ID, Variant: hir.GotoTry}, err
	})
	if err != nil {
		return err
	}

	l.b.TerminateWithContinuation(&hir.Try{
		TerminalMeta:   meta(at),
		Block:          block,
		HandlerBinding: handlerBinding,
		Handler:        handler,
		Fallthrough:    continuation.ID,
	}, continuation)
	return nil
}

func (l *lowerer) lowerLabeled(s *ast.Labeled) error {
	at := loc(s.Pos)
	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	block, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := l.b.Label(s.Name, continuation.ID, func() error {
			return l.block(s.Body)
		})
		return &hir.Goto{TerminalMeta: meta(at), Block: continuation.ID, Variant: hir.GotoBreak}, err
	})
	if err != nil {
		return err
	}

	l.b.TerminateWithContinuation(&hir.Label{
		TerminalMeta: meta(at),
		Block:        block,
		Fallthrough:  continuation.ID,
	}, continuation)
	return nil
}

// lowerSwitch lowers cases last to first so that each case body can fall
// through to the block of the case after it.
func (l *lowerer) lowerSwitch(s *ast.Switch) error {
	at := loc(s.Pos)
	continuation := l.b.Reserve(l.b.CurrentBlockKind())

	var cases []hir.SwitchCase
	hasDefault := false
	fallthroughTarget := continuation.ID

	for i := len(s.Cases) - 1; i >= 0; i-- {
		c := s.Cases[i]
		if c.Test == nil {
			if hasDefault {
				l.b.Record(diagnostics.Syntax(diagnostics.ErrCodeDuplicateDefault, loc(c.Pos),
					"expected at most one default case in a switch statement"))
				break
			}
			hasDefault = true
		}

		next := fallthroughTarget
		block, err := l.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
			err := l.b.Switch(s.Label, continuation.ID, func() error {
				return l.block(c.Body)
			})
			return &hir.Goto{TerminalMeta: meta(loc(c.Pos)), Block: next, Variant: hir.GotoBreak}, err
		})
		if err != nil {
			return err
		}

		var test *hir.Place
		if c.Test != nil {
			t, err := l.expr(c.Test)
			if err != nil {
				return err
			}
			test = &t
		}
		cases = append(cases, hir.SwitchCase{Test: test, Block: block})
		fallthroughTarget = block
	}
	slices.Reverse(cases)

	if !hasDefault {
		cases = append(cases, hir.SwitchCase{Block: continuation.ID})
	}

	test, err := l.expr(s.Test)
	if err != nil {
		return err
	}
	l.b.TerminateWithContinuation(&hir.Switch{
		TerminalMeta: meta(at),
		Test:         test,
		Cases:        cases,
		Fallthrough:  continuation.ID,
	}, continuation)
	return nil
}
