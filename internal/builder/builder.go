package builder

import (
	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// NoNextBlock tells Terminate not to open a new current block.
const NoNextBlock hir.BlockKind = ""

// WIP is a block under construction: reserved, or current and receiving
// instructions.
type WIP struct {
	ID           hir.BlockID
	Kind         hir.BlockKind
	Instructions []*hir.Instruction
}

// Builder turns a sequence of lowering calls into a finished block graph.
// A Builder is used by one goroutine for one function.
type Builder struct {
	env       *hir.Env
	completed map[hir.BlockID]*hir.BasicBlock
	current   *WIP
	entry     hir.BlockID
	scopes    []scope
	handlers  []hir.BlockID
	bag       *diagnostics.Bag
}

// New creates a builder whose current block is a fresh entry block.
func New(env *hir.Env) *Builder {
	entry := &WIP{ID: env.NextBlockID(), Kind: hir.BlockKindBlock}
	return &Builder{
		env:       env,
		completed: make(map[hir.BlockID]*hir.BasicBlock),
		current:   entry,
		entry:     entry.ID,
		bag:       diagnostics.NewBag(),
	}
}

// Env returns the id allocator shared with nested closures.
func (b *Builder) Env() *hir.Env {
	return b.env
}

// Entry returns the id of the function's entry block.
func (b *Builder) Entry() hir.BlockID {
	return b.entry
}

// Record accumulates a non-fatal diagnostic, reported by Build.
func (b *Builder) Record(d *diagnostics.Diagnostic) {
	b.bag.Record(d)
}

// Diagnostics returns the accumulated diagnostics.
func (b *Builder) Diagnostics() *diagnostics.Bag {
	return b.bag
}

// MakeTemporary allocates a place for a compiler-introduced intermediate.
func (b *Builder) MakeTemporary(loc hir.Location) hir.Place {
	return hir.Place{Identifier: b.env.NewTemporary(loc), Effect: hir.EffectUnknown, Loc: loc}
}

// CurrentBlockKind returns the kind of the current block.
func (b *Builder) CurrentBlockKind() hir.BlockKind {
	return b.wip().Kind
}

// CurrentBlockID returns the id of the current block.
func (b *Builder) CurrentBlockID() hir.BlockID {
	return b.wip().ID
}

// wip returns the current block, opening a fresh one if the last terminal
// closed it without a successor. Anything pushed there is unreachable and
// is dropped by Build.
func (b *Builder) wip() *WIP {
	if b.current == nil {
		b.current = b.Reserve(hir.BlockKindBlock)
	}
	return b.current
}

// Push appends instr to the current block. If an exception handler is
// active, the block is then closed with a MaybeThrow to that handler and a
// fresh continuation of the same kind becomes current.
func (b *Builder) Push(instr *hir.Instruction) {
	cur := b.wip()
	cur.Instructions = append(cur.Instructions, instr)

	if handler, ok := b.ResolveThrowHandler(); ok {
		continuation := b.Reserve(cur.Kind)
		b.TerminateWithContinuation(&hir.MaybeThrow{
			TerminalMeta: hir.TerminalMeta{Loc: instr.Loc},
			Continuation: continuation.ID,
			Handler:      handler,
		}, continuation)
	}
}

// ResolveThrowHandler returns the innermost active exception handler.
func (b *Builder) ResolveThrowHandler() (hir.BlockID, bool) {
	if len(b.handlers) == 0 {
		return hir.NoBlock, false
	}
	return b.handlers[len(b.handlers)-1], true
}

// Terminate closes the current block with term. If next is not NoNextBlock
// a fresh block of that kind becomes current. Returns the closed block's id.
func (b *Builder) Terminate(term hir.Terminal, next hir.BlockKind) hir.BlockID {
	cur := b.wip()
	b.completed[cur.ID] = hir.NewBasicBlock(cur.ID, cur.Kind, cur.Instructions, term)
	b.current = nil
	if next != NoNextBlock {
		b.current = &WIP{ID: b.env.NextBlockID(), Kind: next}
	}
	return cur.ID
}

// TerminateWithContinuation closes the current block with term and makes the
// previously reserved continuation current.
func (b *Builder) TerminateWithContinuation(term hir.Terminal, continuation *WIP) {
	cur := b.wip()
	b.completed[cur.ID] = hir.NewBasicBlock(cur.ID, cur.Kind, cur.Instructions, term)
	b.current = continuation
}

// Reserve allocates a block id without making it current, so later code can
// jump to a block whose contents are not lowered yet.
func (b *Builder) Reserve(kind hir.BlockKind) *WIP {
	return &WIP{ID: b.env.NextBlockID(), Kind: kind}
}

// Complete finalizes a reserved block that never became current.
func (b *Builder) Complete(wip *WIP, term hir.Terminal) {
	b.completed[wip.ID] = hir.NewBasicBlock(wip.ID, wip.Kind, wip.Instructions, term)
}

// EnterReserved makes wip current, runs fn to lower its contents, and closes
// whichever block is current when fn returns with fn's terminal (nested
// lowering may have moved on from wip itself). The previous current block is
// restored on every exit path.
func (b *Builder) EnterReserved(wip *WIP, fn func() (hir.Terminal, error)) error {
	prev := b.current
	b.current = wip
	defer func() { b.current = prev }()

	term, err := fn()
	if err != nil {
		return err
	}
	cur := b.wip()
	b.completed[cur.ID] = hir.NewBasicBlock(cur.ID, cur.Kind, cur.Instructions, term)
	return nil
}

// Enter reserves a fresh block of kind, lowers it via EnterReserved and
// returns its id. fn receives the id so nested constructs can jump back to it.
func (b *Builder) Enter(kind hir.BlockKind, fn func(id hir.BlockID) (hir.Terminal, error)) (hir.BlockID, error) {
	wip := b.Reserve(kind)
	err := b.EnterReserved(wip, func() (hir.Terminal, error) {
		return fn(wip.ID)
	})
	return wip.ID, err
}
