package hir

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintFunction renders fn and its nested closures in the textual HIR format:
//
//	name(a$0): $9
//	bb0 (block):
//	  predecessor blocks: bb1 bb2
//	  x$7: phi(bb1: x$3, bb2: x$5)
//	  [1] $2 = LoadLocal a$0
//	  [2] Return Explicit $2
func PrintFunction(fn *Function) string {
	p := &printer{}
	return strings.Join(p.function(fn), "\n")
}

// PrintNormalized renders fn like PrintFunction but renumbers identifiers
// and blocks in order of first appearance, so two functions that differ only
// in the ids their allocators handed out print identically.
func PrintNormalized(fn *Function) string {
	p := &printer{
		idents: make(map[IdentifierID]int),
		blocks: make(map[BlockID]int),
	}
	return strings.Join(p.function(fn), "\n")
}

// PrintGraph renders the blocks of g without a function header.
func PrintGraph(g *Graph) string {
	p := &printer{}
	return strings.Join(p.graph(g), "\n")
}

type printer struct {
	// nil maps mean raw ids are printed
	idents map[IdentifierID]int
	blocks map[BlockID]int
}

func (p *printer) identID(id IdentifierID) int64 {
	if p.idents == nil {
		return int64(id)
	}
	n, ok := p.idents[id]
	if !ok {
		n = len(p.idents)
		p.idents[id] = n
	}
	return int64(n)
}

func (p *printer) block(id BlockID) string {
	if id == NoBlock {
		return "(none)"
	}
	if p.blocks == nil {
		return id.String()
	}
	n, ok := p.blocks[id]
	if !ok {
		n = len(p.blocks)
		p.blocks[id] = n
	}
	return fmt.Sprintf("bb%d", n)
}

func (p *printer) place(pl Place) string {
	if pl.Identifier == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s$%d", pl.Identifier.Name, p.identID(pl.Identifier.ID))
}

func (p *printer) places(ps []Place) string {
	parts := make([]string, len(ps))
	for i, pl := range ps {
		parts[i] = p.place(pl)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) function(fn *Function) []string {
	name := fn.Name
	if name == "" {
		name = "<<anonymous>>"
	}
	lines := []string{fmt.Sprintf("%s(%s): %s", name, p.places(fn.Params), p.place(fn.Returns))}
	if len(fn.Context) > 0 {
		lines = append(lines, fmt.Sprintf("context: %s", p.places(fn.Context)))
	}
	return append(lines, p.graph(fn.Body)...)
}

func (p *printer) graph(g *Graph) []string {
	var lines []string
	for _, b := range g.Ordered() {
		lines = append(lines, fmt.Sprintf("%s (%s):", p.block(b.ID), b.Kind))
		if b.Preds.Cardinality() > 0 {
			preds := b.SortedPreds()
			parts := make([]string, len(preds))
			for i, pred := range preds {
				parts[i] = p.block(pred)
			}
			lines = append(lines, "  predecessor blocks: "+strings.Join(parts, " "))
		}
		for _, phi := range b.Phis {
			lines = append(lines, "  "+p.phi(phi))
		}
		for _, instr := range b.Instructions {
			lines = append(lines, "  "+p.instruction(instr))
			if fe, ok := instr.Value.(*FunctionExpression); ok {
				for _, l := range p.function(fe.Func) {
					lines = append(lines, "      "+l)
				}
			}
		}
		for _, l := range p.terminal(b.Terminal) {
			lines = append(lines, "  "+l)
		}
	}
	return lines
}

func (p *printer) phi(phi *Phi) string {
	ops := phi.SortedOperandBlocks()
	parts := make([]string, len(ops))
	for i, pred := range ops {
		parts[i] = fmt.Sprintf("%s: %s", p.block(pred), p.place(phi.Operands[pred]))
	}
	return fmt.Sprintf("%s: phi(%s)", p.place(phi.Place), strings.Join(parts, ", "))
}

func (p *printer) instruction(instr *Instruction) string {
	return fmt.Sprintf("[%d] %s = %s", instr.ID, p.place(instr.Lvalue), p.value(instr.Value))
}

func (p *printer) value(v InstructionValue) string {
	switch v := v.(type) {
	case *Primitive:
		switch v.Kind {
		case PrimitiveUndefined:
			return "<undefined>"
		case PrimitiveNull:
			return "null"
		case PrimitiveBool:
			return strconv.FormatBool(v.Bool)
		case PrimitiveInt:
			return strconv.FormatInt(v.Int, 10)
		default:
			return strconv.Quote(v.Str)
		}
	case *LoadLocal:
		return "LoadLocal " + p.place(v.Place)
	case *LoadContext:
		return "LoadContext " + p.place(v.Place)
	case *DeclareLocal:
		return fmt.Sprintf("DeclareLocal %s %s", v.Kind, p.place(v.Place))
	case *DeclareContext:
		return fmt.Sprintf("DeclareContext %s %s", v.Kind, p.place(v.Place))
	case *StoreLocal:
		return fmt.Sprintf("StoreLocal %s %s = %s", v.Kind, p.place(v.Place), p.place(v.Value))
	case *StoreContext:
		return fmt.Sprintf("StoreContext %s %s = %s", v.Kind, p.place(v.Place), p.place(v.Value))
	case *LoadGlobal:
		return "LoadGlobal " + v.Name
	case *StoreGlobal:
		return fmt.Sprintf("StoreGlobal %s = %s", v.Name, p.place(v.Value))
	case *Binary:
		return fmt.Sprintf("Binary %s %s %s", p.place(v.Left), v.Op, p.place(v.Right))
	case *Unary:
		return fmt.Sprintf("Unary %s %s", v.Op, p.place(v.Operand))
	case *Call:
		return fmt.Sprintf("Call %s(%s)", p.place(v.Callee), p.places(v.Args))
	case *FunctionExpression:
		name := v.Name
		if name == "" {
			name = "<<anonymous>>"
		}
		return "FunctionExpression " + name
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

func (p *printer) terminal(t Terminal) []string {
	id := Meta(t).ID
	switch t := t.(type) {
	case *Goto:
		variant := ""
		if t.Variant != GotoBreak {
			variant = "(" + string(t.Variant) + ")"
		}
		return []string{fmt.Sprintf("[%d] Goto%s %s", id, variant, p.block(t.Block))}
	case *If:
		return []string{fmt.Sprintf("[%d] If (%s) then:%s else:%s fallthrough=%s",
			id, p.place(t.Test), p.block(t.Consequent), p.block(t.Alternate), p.block(t.Fallthrough))}
	case *Branch:
		return []string{fmt.Sprintf("[%d] Branch (%s) then:%s else:%s fallthrough:%s",
			id, p.place(t.Test), p.block(t.Consequent), p.block(t.Alternate), p.block(t.Fallthrough))}
	case *Switch:
		lines := []string{fmt.Sprintf("[%d] Switch (%s)", id, p.place(t.Test))}
		for _, c := range t.Cases {
			if c.Test != nil {
				lines = append(lines, fmt.Sprintf("  Case %s: %s", p.place(*c.Test), p.block(c.Block)))
			} else {
				lines = append(lines, fmt.Sprintf("  Default: %s", p.block(c.Block)))
			}
		}
		return append(lines, fmt.Sprintf("  Fallthrough: %s", p.block(t.Fallthrough)))
	case *While:
		return []string{fmt.Sprintf("[%d] While test=%s loop=%s fallthrough=%s",
			id, p.block(t.Test), p.block(t.Loop), p.block(t.Fallthrough))}
	case *DoWhile:
		return []string{fmt.Sprintf("[%d] DoWhile loop=%s test=%s fallthrough=%s",
			id, p.block(t.Loop), p.block(t.Test), p.block(t.Fallthrough))}
	case *For:
		return []string{fmt.Sprintf("[%d] For init=%s test=%s loop=%s update=%s fallthrough=%s",
			id, p.block(t.Init), p.block(t.Test), p.block(t.Loop), p.block(t.Update), p.block(t.Fallthrough))}
	case *Label:
		return []string{fmt.Sprintf("[%d] Label block=%s fallthrough=%s", id, p.block(t.Block), p.block(t.Fallthrough))}
	case *MaybeThrow:
		return []string{fmt.Sprintf("[%d] MaybeThrow continuation=%s handler=%s",
			id, p.block(t.Continuation), p.block(t.Handler))}
	case *Try:
		binding := ""
		if t.HandlerBinding != nil {
			binding = fmt.Sprintf(" handlerBinding=(%s)", p.place(*t.HandlerBinding))
		}
		return []string{fmt.Sprintf("[%d] Try block=%s handler=%s%s fallthrough=%s",
			id, p.block(t.Block), p.block(t.Handler), binding, p.block(t.Fallthrough))}
	case *Return:
		return []string{fmt.Sprintf("[%d] Return %s %s", id, t.Variant, p.place(t.Value))}
	case *Throw:
		return []string{fmt.Sprintf("[%d] Throw %s", id, p.place(t.Value))}
	case *Unreachable:
		return []string{fmt.Sprintf("[%d] Unreachable", id)}
	case *Unsupported:
		return []string{fmt.Sprintf("[%d] Unsupported", id)}
	default:
		return []string{fmt.Sprintf("[%d] <%T>", id, t)}
	}
}
