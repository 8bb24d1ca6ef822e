package hir

import "fmt"

// TerminalMeta carries the fields every terminal shares.
type TerminalMeta struct {
	ID  InstructionID
	Loc Location
}

func (m *TerminalMeta) meta() *TerminalMeta { return m }

// Terminal is a sealed interface over the control transfers that end a block.
// Only the types in this file implement it.
type Terminal interface {
	meta() *TerminalMeta // Sealed
}

// Meta returns the shared id/location fields of t.
func Meta(t Terminal) *TerminalMeta {
	return t.meta()
}

// GotoVariant records why a goto was emitted.
type GotoVariant string

const (
	GotoBreak    GotoVariant = "Break"
	GotoContinue GotoVariant = "Continue"
	GotoTry      GotoVariant = "Try"
)

// ReturnVariant distinguishes the implicit return at the end of a body.
type ReturnVariant string

const (
	ReturnVoid     ReturnVariant = "Void"
	ReturnExplicit ReturnVariant = "Explicit"
)

type Goto struct {
	TerminalMeta
	Block   BlockID
	Variant GotoVariant
}

type If struct {
	TerminalMeta
	Test        Place
	Consequent  BlockID
	Alternate   BlockID
	Fallthrough BlockID
}

// Branch is the conditional edge out of a loop test block.
type Branch struct {
	TerminalMeta
	Test        Place
	Consequent  BlockID
	Alternate   BlockID
	Fallthrough BlockID
}

// SwitchCase is one arm of a Switch; a nil Test is the default arm.
type SwitchCase struct {
	Test  *Place
	Block BlockID
}

type Switch struct {
	TerminalMeta
	Test        Place
	Cases       []SwitchCase
	Fallthrough BlockID
}

type While struct {
	TerminalMeta
	Test        BlockID
	Loop        BlockID
	Fallthrough BlockID
}

type DoWhile struct {
	TerminalMeta
	Loop        BlockID
	Test        BlockID
	Fallthrough BlockID
}

// For models a C-style loop. Update is NoBlock when absent.
type For struct {
	TerminalMeta
	Init        BlockID
	Test        BlockID
	Update      BlockID
	Loop        BlockID
	Fallthrough BlockID
}

type Label struct {
	TerminalMeta
	Block       BlockID
	Fallthrough BlockID
}

// MaybeThrow ends a block whose last instruction might throw: control falls
// through to Continuation, or transfers to Handler on a throw.
type MaybeThrow struct {
	TerminalMeta
	Continuation BlockID
	Handler      BlockID
}

// Try enters a guarded region. Handler is only reachable through the
// MaybeThrow edges of the region, never from the Try itself.
type Try struct {
	TerminalMeta
	Block          BlockID
	HandlerBinding *Place
	Handler        BlockID
	Fallthrough    BlockID
}

type Return struct {
	TerminalMeta
	Variant ReturnVariant
	Value   Place
}

type Throw struct {
	TerminalMeta
	Value Place
}

type Unreachable struct {
	TerminalMeta
}

type Unsupported struct {
	TerminalMeta
}

// Successors returns the blocks control may transfer to from t, in order.
// Fallthrough blocks are not successors.
func Successors(t Terminal) []BlockID {
	switch t := t.(type) {
	case *Goto:
		return []BlockID{t.Block}
	case *If:
		return []BlockID{t.Consequent, t.Alternate}
	case *Branch:
		return []BlockID{t.Consequent, t.Alternate}
	case *Switch:
		out := make([]BlockID, 0, len(t.Cases))
		for _, c := range t.Cases {
			out = append(out, c.Block)
		}
		return out
	case *While:
		return []BlockID{t.Test}
	case *DoWhile:
		return []BlockID{t.Loop}
	case *For:
		return []BlockID{t.Init}
	case *Label:
		return []BlockID{t.Block}
	case *MaybeThrow:
		return []BlockID{t.Continuation, t.Handler}
	case *Try:
		return []BlockID{t.Block}
	case *Return, *Throw, *Unreachable, *Unsupported:
		return nil
	default:
		panic(fmt.Sprintf("hir: unhandled terminal %T", t))
	}
}

// Fallthrough returns the block that follows the structured construct t
// closes, if t has one.
func Fallthrough(t Terminal) (BlockID, bool) {
	switch t := t.(type) {
	case *If:
		return t.Fallthrough, true
	case *Branch:
		return t.Fallthrough, true
	case *Switch:
		return t.Fallthrough, true
	case *While:
		return t.Fallthrough, true
	case *DoWhile:
		return t.Fallthrough, true
	case *For:
		return t.Fallthrough, true
	case *Label:
		return t.Fallthrough, true
	case *Try:
		return t.Fallthrough, true
	case *Goto, *MaybeThrow, *Return, *Throw, *Unreachable, *Unsupported:
		return NoBlock, false
	default:
		panic(fmt.Sprintf("hir: unhandled terminal %T", t))
	}
}

// TerminalOperands returns the places t reads.
func TerminalOperands(t Terminal) []Place {
	var out []Place
	MapTerminalOperands(t, func(p Place) Place {
		out = append(out, p)
		return p
	})
	return out
}

// MapTerminalOperands replaces every place t reads with fn's result.
func MapTerminalOperands(t Terminal, fn func(Place) Place) {
	switch t := t.(type) {
	case *If:
		t.Test = fn(t.Test)
	case *Branch:
		t.Test = fn(t.Test)
	case *Switch:
		t.Test = fn(t.Test)
		for i := range t.Cases {
			if t.Cases[i].Test != nil {
				p := fn(*t.Cases[i].Test)
				t.Cases[i].Test = &p
			}
		}
	case *Return:
		t.Value = fn(t.Value)
	case *Throw:
		t.Value = fn(t.Value)
	case *Try:
		if t.HandlerBinding != nil {
			p := fn(*t.HandlerBinding)
			t.HandlerBinding = &p
		}
	case *Goto, *While, *DoWhile, *For, *Label, *MaybeThrow, *Unreachable, *Unsupported:
	default:
		panic(fmt.Sprintf("hir: unhandled terminal %T", t))
	}
}
