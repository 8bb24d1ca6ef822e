package ssa

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// Verify checks the properties optimization passes rely on after Convert:
//
//   - every identifier id is defined once (parameter, instruction lvalue or phi)
//     across fn and its closures
//   - a phi has exactly one operand per predecessor of its block
//   - blocks with fewer than two predecessors carry no phis
//   - every temporary that is read is also defined
//
// All violations are reported, combined into one error.
func Verify(fn *hir.Function) error {
	var errs error
	defined := make(map[hir.IdentifierID]string)

	define := func(p hir.Place, site string) {
		id := p.Identifier.ID
		if prev, ok := defined[id]; ok {
			errs = multierr.Append(errs, diagnostics.Invariant(diagnostics.ErrCodeMultipleDefinition, p.Loc,
				"%s$%d defined by %s and %s", p.Identifier.Name, id, prev, site))
			return
		}
		defined[id] = site
	}

	fn.EachFunction(func(f *hir.Function) {
		for _, p := range f.Params {
			define(p, fmt.Sprintf("parameter of %s", displayName(f)))
		}
		for _, b := range f.Body.Ordered() {
			for _, phi := range b.Phis {
				define(phi.Place, fmt.Sprintf("phi in %s", b.ID))
			}
			for _, instr := range b.Instructions {
				for _, p := range hir.InstructionLvalues(instr) {
					define(p, fmt.Sprintf("instruction [%d]", instr.ID))
				}
			}
		}
	})

	fn.EachFunction(func(f *hir.Function) {
		for _, b := range f.Body.Ordered() {
			errs = multierr.Append(errs, verifyPhis(b))

			var reads []hir.Place
			for _, phi := range b.Phis {
				for _, pred := range phi.SortedOperandBlocks() {
					reads = append(reads, phi.Operands[pred])
				}
			}
			for _, instr := range b.Instructions {
				reads = append(reads, hir.InstructionOperands(instr)...)
			}
			reads = append(reads, hir.TerminalOperands(b.Terminal)...)

			for _, p := range reads {
				if _, ok := defined[p.Identifier.ID]; !ok && p.Identifier.IsTemporary() {
					errs = multierr.Append(errs, diagnostics.Invariant(diagnostics.ErrCodeUndefinedOperand, p.Loc,
						"temporary $%d read in %s is never defined", p.Identifier.ID, b.ID))
				}
			}
		}
	})

	return errs
}

func verifyPhis(b *hir.BasicBlock) error {
	if len(b.Phis) == 0 {
		return nil
	}
	if b.Preds.Cardinality() < 2 {
		return diagnostics.Invariant(diagnostics.ErrCodeRedundantPhi, hir.Location{},
			"%s has %d phi(s) but %d predecessor(s)", b.ID, len(b.Phis), b.Preds.Cardinality())
	}

	var errs error
	for _, phi := range b.Phis {
		match := len(phi.Operands) == b.Preds.Cardinality()
		for pred := range phi.Operands {
			if !b.Preds.Contains(pred) {
				match = false
			}
		}
		if !match {
			errs = multierr.Append(errs, diagnostics.Invariant(diagnostics.ErrCodePhiOperands, phi.Place.Loc,
				"phi %s$%d in %s has operands from %v, predecessors are %v",
				phi.Place.Identifier.Name, phi.ID(), b.ID, phi.SortedOperandBlocks(), b.SortedPreds()))
		}
	}
	return errs
}

func displayName(f *hir.Function) string {
	if f.Name == "" {
		return "<<anonymous>>"
	}
	return f.Name
}
