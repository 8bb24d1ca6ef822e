package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hirssa/internal/builder"
	"github.com/roach88/hirssa/internal/hir"
)

// prog lowers small programs straight onto the builder so converter tests do
// not depend on the CUE front end.
type prog struct {
	t    *testing.T
	env  *hir.Env
	b    *builder.Builder
	vars map[string]*hir.Identifier
}

func newProg(t *testing.T) *prog {
	env := hir.NewEnv()
	return &prog{t: t, env: env, b: builder.New(env), vars: make(map[string]*hir.Identifier)}
}

// nested starts a closure body sharing p's allocator and variables.
func (p *prog) nested() *prog {
	return &prog{t: p.t, env: p.env, b: builder.New(p.env), vars: p.vars}
}

func (p *prog) emit(v hir.InstructionValue) hir.Place {
	tmp := p.b.MakeTemporary(hir.Location{})
	p.b.Push(&hir.Instruction{Lvalue: tmp, Value: v})
	return tmp
}

func (p *prog) ident(name string) *hir.Identifier {
	id, ok := p.vars[name]
	if !ok {
		id = p.env.NewNamed(name, hir.Location{})
		p.vars[name] = id
	}
	return id
}

func (p *prog) param(name string) hir.Place {
	return hir.Place{Identifier: p.ident(name)}
}

func (p *prog) num(n int64) hir.Place { return p.emit(hir.Int(n)) }

func (p *prog) global(name string) hir.Place { return p.emit(&hir.LoadGlobal{Name: name}) }

func (p *prog) load(name string) hir.Place {
	return p.emit(&hir.LoadLocal{Place: hir.Place{Identifier: p.ident(name)}})
}

func (p *prog) store(name string, kind hir.InstructionKind, v hir.Place) {
	p.emit(&hir.StoreLocal{Kind: kind, Place: hir.Place{Identifier: p.ident(name)}, Value: v})
}

func (p *prog) add(l, r hir.Place) hir.Place {
	return p.emit(&hir.Binary{Op: "+", Left: l, Right: r})
}

func (p *prog) call(callee string, args ...hir.Place) hir.Place {
	fn := p.global(callee)
	return p.emit(&hir.Call{Callee: fn, Args: args})
}

// ifElse lowers `if (test) { cons } else { alt }`; alt may be nil.
func (p *prog) ifElse(test hir.Place, cons, alt func()) {
	conclusion := p.b.Reserve(hir.BlockKindBlock)
	consBlock, err := p.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		cons()
		return &hir.Goto{Block: conclusion.ID, Variant: hir.GotoBreak}, nil
	})
	require.NoError(p.t, err)
	altBlock := conclusion.ID
	if alt != nil {
		altBlock, err = p.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
			alt()
			return &hir.Goto{Block: conclusion.ID, Variant: hir.GotoBreak}, nil
		})
		require.NoError(p.t, err)
	}
	p.b.TerminateWithContinuation(&hir.If{
		Test: test, Consequent: consBlock, Alternate: altBlock, Fallthrough: conclusion.ID,
	}, conclusion)
}

// while lowers `while (test()) { body }` and returns the header block id.
func (p *prog) while(test func() hir.Place, body func()) hir.BlockID {
	cond := p.b.Reserve(hir.BlockKindLoop)
	exit := p.b.Reserve(hir.BlockKindBlock)
	loop, err := p.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := p.b.EnterLoop("", cond.ID, exit.ID, func() error {
			body()
			return nil
		})
		return &hir.Goto{Block: cond.ID, Variant: hir.GotoContinue}, err
	})
	require.NoError(p.t, err)
	p.b.TerminateWithContinuation(&hir.While{Test: cond.ID, Loop: loop, Fallthrough: exit.ID}, cond)
	t := test()
	p.b.TerminateWithContinuation(&hir.Branch{Test: t, Consequent: loop, Alternate: exit.ID, Fallthrough: cond.ID}, exit)
	return cond.ID
}

// try lowers `try { region } catch { handler }` and returns the handler id.
func (p *prog) try(region, handler func()) hir.BlockID {
	cont := p.b.Reserve(hir.BlockKindBlock)
	h, err := p.b.Enter(hir.BlockKindCatch, func(hir.BlockID) (hir.Terminal, error) {
		handler()
		return &hir.Goto{Block: cont.ID, Variant: hir.GotoBreak}, nil
	})
	require.NoError(p.t, err)
	blk, err := p.b.Enter(hir.BlockKindBlock, func(hir.BlockID) (hir.Terminal, error) {
		err := p.b.EnterTryCatch(h, func() error {
			region()
			return nil
		})
		return &hir.Goto{Block: cont.ID, Variant: hir.GotoTry}, err
	})
	require.NoError(p.t, err)
	p.b.TerminateWithContinuation(&hir.Try{Block: blk, Handler: h, Fallthrough: cont.ID}, cont)
	return h
}

func (p *prog) ret(v hir.Place) {
	p.b.Terminate(&hir.Return{Variant: hir.ReturnExplicit, Value: v}, builder.NoNextBlock)
}

func (p *prog) finish(name string, params ...hir.Place) *hir.Function {
	g, err := p.b.Build()
	require.NoError(p.t, err)
	return &hir.Function{
		Name:    name,
		Params:  params,
		Returns: p.b.MakeTemporary(hir.Location{}),
		Body:    g,
		Env:     p.env,
	}
}

// findInstr returns the first instruction in fn's top-level blocks matching pred.
func findInstr(fn *hir.Function, pred func(*hir.Instruction) bool) *hir.Instruction {
	for _, b := range fn.Body.Ordered() {
		for _, instr := range b.Instructions {
			if pred(instr) {
				return instr
			}
		}
	}
	return nil
}

func storesTo(name string) func(*hir.Instruction) bool {
	return func(instr *hir.Instruction) bool {
		s, ok := instr.Value.(*hir.StoreLocal)
		return ok && s.Place.Identifier.Name == name
	}
}
