package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/hirssa/internal/hir"
	"github.com/roach88/hirssa/internal/ssa"
)

// AssertionError is returned when an assertion fails.
// It includes the printed graph to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Graph    string // Printed SSA form, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Graph != "" {
		fmt.Fprintf(&buf, "\nGraph:\n")
		for _, line := range strings.Split(e.Graph, "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the converted
// function fn. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(fn *hir.Function, assertions []Assertion) []string {
	var errors []string
	graph := hir.PrintFunction(fn)

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPhiCount:
			err = assertPhiCount(fn, assertion)
		case AssertNoPhis:
			err = assertNoPhis(fn)
		case AssertMaybeThrow:
			err = assertMaybeThrow(fn, assertion)
		case AssertSingleAssignment:
			err = assertSingleAssignment(fn)
		case AssertReturnUsesPhi:
			err = assertReturnUsesPhi(fn, assertion)
		case AssertPreds:
			err = assertPreds(fn, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if ae, ok := err.(*AssertionError); ok {
			ae.Graph = graph
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertPhiCount counts the phis of one block, or of fn and its closures
// when no block is given.
func assertPhiCount(fn *hir.Function, a Assertion) error {
	want := *a.Count
	if a.Block == nil {
		if got := fn.PhiCount(); got != want {
			return &AssertionError{
				Type:     AssertPhiCount,
				Expected: fmt.Sprintf("%d phi(s) in function", want),
				Actual:   fmt.Sprintf("%d phi(s)", got),
			}
		}
		return nil
	}

	block, err := lookupBlock(fn, AssertPhiCount, *a.Block)
	if err != nil {
		return err
	}
	if got := len(block.Phis); got != want {
		return &AssertionError{
			Type:     AssertPhiCount,
			Expected: fmt.Sprintf("%d phi(s) in %s", want, block.ID),
			Actual:   fmt.Sprintf("%d phi(s)", got),
		}
	}
	return nil
}

func assertNoPhis(fn *hir.Function) error {
	if got := fn.PhiCount(); got != 0 {
		return &AssertionError{
			Type:     AssertNoPhis,
			Expected: "no phis",
			Actual:   fmt.Sprintf("%d phi(s)", got),
		}
	}
	return nil
}

// assertMaybeThrow requires at least one MaybeThrow edge. With
// HandlerIsCatch every handler must also be a catch block that counts the
// throwing block among its predecessors.
func assertMaybeThrow(fn *hir.Function, a Assertion) error {
	found := 0
	var problems []string
	fn.EachFunction(func(f *hir.Function) {
		for _, b := range f.Body.Ordered() {
			mt, ok := b.Terminal.(*hir.MaybeThrow)
			if !ok {
				continue
			}
			found++
			if !a.HandlerIsCatch {
				continue
			}
			handler, ok := f.Body.Block(mt.Handler)
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s: handler %s does not exist", b.ID, mt.Handler))
			case handler.Kind != hir.BlockKindCatch:
				problems = append(problems, fmt.Sprintf("%s: handler %s is a %s block", b.ID, mt.Handler, handler.Kind))
			case !handler.Preds.Contains(b.ID):
				problems = append(problems, fmt.Sprintf("%s: handler %s does not list it as a predecessor", b.ID, mt.Handler))
			}
		}
	})

	if found == 0 {
		return &AssertionError{
			Type:     AssertMaybeThrow,
			Expected: "at least one MaybeThrow terminal",
			Actual:   "none found",
		}
	}
	if len(problems) > 0 {
		return &AssertionError{
			Type:     AssertMaybeThrow,
			Expected: "every MaybeThrow handler is a catch block",
			Actual:   strings.Join(problems, "; "),
		}
	}
	return nil
}

func assertSingleAssignment(fn *hir.Function) error {
	if err := ssa.Verify(fn); err != nil {
		return &AssertionError{
			Type:     AssertSingleAssignment,
			Expected: "graph passes SSA verification",
			Actual:   err.Error(),
		}
	}
	return nil
}

// assertReturnUsesPhi requires some explicit return of fn to return a value
// read from a phi, either directly or through the load that feeds it.
func assertReturnUsesPhi(fn *hir.Function, a Assertion) error {
	phis := make(map[hir.IdentifierID]*hir.Phi)
	for _, b := range fn.Body.Blocks {
		for _, phi := range b.Phis {
			if a.Variable == "" || phi.Place.Identifier.Name == a.Variable {
				phis[phi.ID()] = phi
			}
		}
	}

	returns := 0
	for _, b := range fn.Body.Ordered() {
		ret, ok := b.Terminal.(*hir.Return)
		if !ok || ret.Variant != hir.ReturnExplicit {
			continue
		}
		returns++
		if _, ok := phis[ret.Value.Identifier.ID]; ok {
			return nil
		}
		if src, ok := loadedPlace(b, ret.Value.Identifier.ID); ok {
			if _, ok := phis[src]; ok {
				return nil
			}
		}
	}

	expected := "an explicit return reading a phi"
	if a.Variable != "" {
		expected = fmt.Sprintf("an explicit return reading a phi of %q", a.Variable)
	}
	return &AssertionError{
		Type:     AssertReturnUsesPhi,
		Expected: expected,
		Actual:   fmt.Sprintf("%d explicit return(s), %d candidate phi(s), none connected", returns, len(phis)),
	}
}

// loadedPlace finds the load in b that defines temp and returns the
// identifier it reads.
func loadedPlace(b *hir.BasicBlock, temp hir.IdentifierID) (hir.IdentifierID, bool) {
	for _, instr := range b.Instructions {
		if instr.Lvalue.Identifier.ID != temp {
			continue
		}
		switch v := instr.Value.(type) {
		case *hir.LoadLocal:
			return v.Place.Identifier.ID, true
		case *hir.LoadContext:
			return v.Place.Identifier.ID, true
		}
		return 0, false
	}
	return 0, false
}

func assertPreds(fn *hir.Function, a Assertion) error {
	block, err := lookupBlock(fn, AssertPreds, *a.Block)
	if err != nil {
		return err
	}
	if got := block.Preds.Cardinality(); got != *a.Count {
		return &AssertionError{
			Type:     AssertPreds,
			Expected: fmt.Sprintf("%s has %d predecessor(s)", block.ID, *a.Count),
			Actual:   fmt.Sprintf("%d predecessor(s): %v", got, block.SortedPreds()),
		}
	}
	return nil
}

// lookupBlock finds a block in fn or any of its closures; block ids are
// unique across a function and its closures.
func lookupBlock(fn *hir.Function, kind string, id int64) (*hir.BasicBlock, error) {
	var found *hir.BasicBlock
	fn.EachFunction(func(f *hir.Function) {
		if b, ok := f.Body.Block(hir.BlockID(id)); ok && found == nil {
			found = b
		}
	})
	if found == nil {
		return nil, &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("block %s to exist", hir.BlockID(id)),
			Actual:   "no such block",
		}
	}
	return found, nil
}
