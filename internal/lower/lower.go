package lower

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/hirssa/internal/ast"
	"github.com/roach88/hirssa/internal/builder"
	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// Lower builds the HIR for fn, drawing ids from env.
//
// Unsupported or invalid input is accumulated and returned combined once
// the whole function has been walked (see diagnostics.Flatten). A broken
// builder invariant aborts immediately with a *diagnostics.InvariantError.
func Lower(env *hir.Env, fn *ast.Function) (*hir.Function, error) {
	l := &lowerer{
		env:         env,
		b:           builder.New(env),
		contextVars: contextDecls(fn),
		captured:    mapset.NewThreadUnsafeSet[hir.IdentifierID](),
	}
	return l.function(fn)
}

type binding struct {
	ident   *hir.Identifier
	context bool
	owner   *lowerer
}

// lowerer lowers one function body. Closures get a child lowerer with a
// fresh builder over the same Env.
type lowerer struct {
	env         *hir.Env
	b           *builder.Builder
	parent      *lowerer
	contextVars mapset.Set[declKey]

	scopes []map[string]*binding

	// Places captured from enclosing functions, in first-use order.
	context  []hir.Place
	captured mapset.Set[hir.IdentifierID]
}

func (l *lowerer) child() *lowerer {
	return &lowerer{
		env:         l.env,
		b:           builder.New(l.env),
		parent:      l,
		contextVars: l.contextVars,
		captured:    mapset.NewThreadUnsafeSet[hir.IdentifierID](),
	}
}

func loc(p ast.Pos) hir.Location {
	return hir.Location{File: p.File, Line: p.Line, Column: p.Column}
}

func meta(l hir.Location) hir.TerminalMeta {
	return hir.TerminalMeta{Loc: l}
}

// emit pushes `$t = value` and returns $t.
func (l *lowerer) emit(at hir.Location, value hir.InstructionValue) hir.Place {
	tmp := l.b.MakeTemporary(at)
	l.b.Push(&hir.Instruction{Lvalue: tmp, Value: value, Loc: at})
	return tmp
}

func (l *lowerer) pushScope() { l.scopes = append(l.scopes, make(map[string]*binding)) }
func (l *lowerer) popScope()  { l.scopes = l.scopes[:len(l.scopes)-1] }

// declare binds name in the innermost scope to a fresh identifier.
func (l *lowerer) declare(name string, key declKey, at hir.Location) *binding {
	scope := l.scopes[len(l.scopes)-1]
	if _, ok := scope[name]; ok {
		l.b.Record(diagnostics.Syntax(diagnostics.ErrCodeRedeclared, at,
			"identifier %q has already been declared", name))
	}
	b := &binding{
		ident:   l.env.NewNamed(name, at),
		context: l.contextVars.Contains(key),
		owner:   l,
	}
	scope[name] = b
	return b
}

// resolve finds the binding for name, searching enclosing functions too.
// A binding owned by an enclosing function is added to the context of every
// function between it and l. Returns nil for globals.
func (l *lowerer) resolve(name string) *binding {
	for fn := l; fn != nil; fn = fn.parent {
		for i := len(fn.scopes) - 1; i >= 0; i-- {
			b, ok := fn.scopes[i][name]
			if !ok {
				continue
			}
			for inner := l; inner != fn; inner = inner.parent {
				inner.capture(b)
			}
			return b
		}
	}
	return nil
}

func (l *lowerer) capture(b *binding) {
	if l.captured.Add(b.ident.ID) {
		l.context = append(l.context, hir.Place{
			Identifier: b.ident,
			Effect:     hir.EffectCapture,
			Loc:        b.ident.Loc,
		})
	}
}

func (l *lowerer) function(fn *ast.Function) (*hir.Function, error) {
	at := loc(fn.Pos)
	l.pushScope()
	defer l.popScope()

	params := make([]hir.Place, 0, len(fn.Params))
	for i := range fn.Params {
		p := &fn.Params[i]
		ploc := loc(p.Pos)
		b := l.declare(p.Name, p, ploc)
		if !b.context {
			params = append(params, hir.Place{Identifier: b.ident, Effect: hir.EffectUnknown, Loc: ploc})
			continue
		}
		// The incoming value arrives in a plain parameter and is copied into
		// the shared binding.
		incoming := hir.Place{Identifier: l.env.NewNamed(p.Name, ploc), Effect: hir.EffectUnknown, Loc: ploc}
		params = append(params, incoming)
		l.emit(ploc, &hir.StoreContext{
			Kind:  hir.InstructionLet,
			Place: hir.Place{Identifier: b.ident, Effect: hir.EffectStore, Loc: ploc},
			Value: incoming,
		})
	}

	for _, s := range fn.Body {
		if err := l.stmt(s); err != nil {
			return nil, err
		}
	}

	undefined := l.emit(hir.Location{}, hir.Undefined())
	l.b.Terminate(&hir.Return{Variant: hir.ReturnVoid, Value: undefined}, builder.NoNextBlock)

	g, err := l.b.Build()
	if err != nil {
		return nil, err
	}
	return &hir.Function{
		Name:    fn.Name,
		Params:  params,
		Returns: l.b.MakeTemporary(at),
		Context: l.context,
		Body:    g,
		Env:     l.env,
		Loc:     at,
	}, nil
}
