package hir

import "fmt"

// InstructionOperands returns the places instr reads, in evaluation order.
func InstructionOperands(instr *Instruction) []Place {
	var out []Place
	MapInstructionOperands(instr, func(p Place) Place {
		out = append(out, p)
		return p
	})
	return out
}

// InstructionLvalues returns the places instr defines: the named place of a
// local declaration or store, then the instruction's own temporary.
func InstructionLvalues(instr *Instruction) []Place {
	var out []Place
	MapInstructionLvalues(instr, func(p Place) Place {
		out = append(out, p)
		return p
	})
	return out
}

// MapInstructionOperands replaces every place instr reads with fn's result.
//
// Context variables are operands even where they are written: StoreContext
// and DeclareContext never define a new SSA value. A closure's operands are
// the places it captures.
func MapInstructionOperands(instr *Instruction, fn func(Place) Place) {
	switch v := instr.Value.(type) {
	case *Primitive, *LoadGlobal, *DeclareLocal:
	case *LoadLocal:
		v.Place = fn(v.Place)
	case *LoadContext:
		v.Place = fn(v.Place)
	case *DeclareContext:
		v.Place = fn(v.Place)
	case *StoreLocal:
		v.Value = fn(v.Value)
	case *StoreContext:
		v.Place = fn(v.Place)
		v.Value = fn(v.Value)
	case *StoreGlobal:
		v.Value = fn(v.Value)
	case *Binary:
		v.Left = fn(v.Left)
		v.Right = fn(v.Right)
	case *Unary:
		v.Operand = fn(v.Operand)
	case *Call:
		v.Callee = fn(v.Callee)
		for i := range v.Args {
			v.Args[i] = fn(v.Args[i])
		}
	case *FunctionExpression:
		for i := range v.Func.Context {
			v.Func.Context[i] = fn(v.Func.Context[i])
		}
	default:
		panic(fmt.Sprintf("hir: unhandled instruction value %T", v))
	}
}

// MapInstructionLvalues replaces every place instr defines with fn's result.
func MapInstructionLvalues(instr *Instruction, fn func(Place) Place) {
	switch v := instr.Value.(type) {
	case *DeclareLocal:
		v.Place = fn(v.Place)
	case *StoreLocal:
		v.Place = fn(v.Place)
	}
	instr.Lvalue = fn(instr.Lvalue)
}
