package ssa

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

type incompletePhi struct {
	oldPlace hir.Place
	newPlace hir.Place
}

// blockState is the per-block working state: the reaching definition of each
// original variable, and placeholder phis awaiting the block's sealing.
type blockState struct {
	defs           map[hir.IdentifierID]*hir.Identifier
	incompletePhis []incompletePhi
}

// converter holds state shared by a function and all of its closures.
// Closure blocks are registered in the same table so captured variables
// resolve against the enclosing function's definitions.
type converter struct {
	env           *hir.Env
	blocks        map[hir.BlockID]*hir.BasicBlock
	states        map[hir.BlockID]*blockState
	unsealedPreds map[hir.BlockID]int
	visited       mapset.Set[hir.BlockID]
	unknown       mapset.Set[hir.IdentifierID]
	current       *hir.BasicBlock
}

// Convert rewrites fn and its closures into SSA form in place.
//
// On return every identifier id is defined at most once: by a parameter, an
// instruction lvalue or a phi. Variables never defined in fn (globals the
// lowering could not see, or reads before any definition) and context
// variables are left unchanged. Convert stops at the first invariant
// violation.
func Convert(fn *hir.Function) error {
	c := &converter{
		env:           fn.Env,
		blocks:        make(map[hir.BlockID]*hir.BasicBlock),
		states:        make(map[hir.BlockID]*blockState),
		unsealedPreds: make(map[hir.BlockID]int),
		visited:       mapset.NewThreadUnsafeSet[hir.BlockID](),
		unknown:       mapset.NewThreadUnsafeSet[hir.IdentifierID](),
	}
	c.markContextVariables(fn)
	c.defineFunction(fn)
	return c.convert(fn, fn.Body.Entry)
}

// markContextVariables excludes variables shared with closures from
// renaming: any instruction may observe or change them.
func (c *converter) markContextVariables(fn *hir.Function) {
	fn.EachFunction(func(f *hir.Function) {
		for _, b := range f.Body.Ordered() {
			for _, instr := range b.Instructions {
				switch v := instr.Value.(type) {
				case *hir.DeclareContext:
					c.unknown.Add(v.Place.Identifier.ID)
				case *hir.StoreContext:
					c.unknown.Add(v.Place.Identifier.ID)
				case *hir.LoadContext:
					c.unknown.Add(v.Place.Identifier.ID)
				}
			}
		}
	})
}

func (c *converter) defineFunction(fn *hir.Function) {
	for id, b := range fn.Body.Blocks {
		c.blocks[id] = b
	}
}

func (c *converter) convert(fn *hir.Function, rootEntry hir.BlockID) error {
	for _, id := range hir.VisitOrder(fn.Body) {
		block := fn.Body.Blocks[id]
		if !c.visited.Add(id) {
			return diagnostics.Invariant(diagnostics.ErrCodeBlockRevisited, hir.Meta(block.Terminal).Loc,
				"bb%d visited twice", id)
		}
		c.startBlock(block)

		if id == rootEntry {
			if n := block.Preds.Cardinality(); n != 0 {
				return diagnostics.Invariant(diagnostics.ErrCodeRootEntryPreds, fn.Loc,
					"expected entry block bb%d to have no predecessors, got %d", id, n)
			}
			if len(fn.Context) != 0 {
				return diagnostics.Invariant(diagnostics.ErrCodeRootContext, fn.Loc,
					"expected function context to be empty for outer function declarations, got %d place(s)", len(fn.Context))
			}
			for i := range fn.Params {
				fn.Params[i] = c.definePlace(fn.Params[i])
			}
		}

		for _, instr := range block.Instructions {
			hir.MapInstructionOperands(instr, c.getPlace)
			hir.MapInstructionLvalues(instr, c.definePlace)

			if fe, ok := instr.Value.(*hir.FunctionExpression); ok {
				if err := c.enterClosure(block, fe.Func, rootEntry); err != nil {
					return err
				}
			}
		}

		hir.MapTerminalOperands(block.Terminal, c.getPlace)

		seen := mapset.NewThreadUnsafeSet[hir.BlockID]()
		for _, succ := range hir.Successors(block.Terminal) {
			if !seen.Add(succ) {
				continue
			}
			out, ok := c.blocks[succ]
			if !ok {
				continue
			}
			count, ok := c.unsealedPreds[succ]
			if !ok {
				count = out.Preds.Cardinality()
			}
			count--
			c.unsealedPreds[succ] = count
			if count == 0 && c.visited.Contains(succ) {
				c.fixIncompletePhis(out)
			}
		}
	}
	return nil
}

// enterClosure converts a nested function in the middle of its enclosing
// block. The enclosing block is temporarily made the closure entry's only
// predecessor, so lookups that miss inside the closure continue into the
// enclosing function at the point of the closure's creation.
func (c *converter) enterClosure(outer *hir.BasicBlock, inner *hir.Function, rootEntry hir.BlockID) error {
	entry, ok := inner.Body.Blocks[inner.Body.Entry]
	if !ok {
		return nil
	}
	if entry.Preds.Cardinality() != 0 {
		return diagnostics.Invariant(diagnostics.ErrCodeClosureEntryPreds, inner.Loc,
			"expected closure entry bb%d to have zero predecessors, got %d", entry.ID, entry.Preds.Cardinality())
	}
	entry.Preds.Add(outer.ID)
	defer entry.Preds.Clear()

	c.defineFunction(inner)

	saved := c.current
	defer func() { c.current = saved }()

	for i := range inner.Params {
		inner.Params[i] = c.definePlace(inner.Params[i])
	}
	return c.convert(inner, rootEntry)
}

func (c *converter) startBlock(b *hir.BasicBlock) {
	c.current = b
	c.states[b.ID] = &blockState{defs: make(map[hir.IdentifierID]*hir.Identifier)}
}

func (c *converter) state(id hir.BlockID) *blockState {
	s, ok := c.states[id]
	if !ok {
		s = &blockState{defs: make(map[hir.IdentifierID]*hir.Identifier)}
		c.states[id] = s
	}
	return s
}

// definePlace gives a written place a fresh identifier and records it as the
// reaching definition in the current block. Free variables pass through.
func (c *converter) definePlace(old hir.Place) hir.Place {
	oldID := old.Identifier.ID
	if c.unknown.Contains(oldID) {
		return old
	}
	newIdent := c.env.Rename(old.Identifier)
	c.state(c.current.ID).defs[oldID] = newIdent
	return old.WithIdentifier(newIdent)
}

// getPlace rewrites a read place to the definition reaching the current block.
func (c *converter) getPlace(old hir.Place) hir.Place {
	if c.unknown.Contains(old.Identifier.ID) {
		return old
	}
	return old.WithIdentifier(c.getIDAt(old, c.current.ID))
}

func (c *converter) getIDAt(old hir.Place, blockID hir.BlockID) *hir.Identifier {
	oldID := old.Identifier.ID

	block, ok := c.blocks[blockID]
	if !ok {
		return old.Identifier
	}
	st := c.state(blockID)
	if def, ok := st.defs[oldID]; ok {
		return def
	}

	preds := block.Preds.Cardinality()
	if preds == 0 {
		c.unknown.Add(oldID)
		return old.Identifier
	}

	if c.unsealedPreds[blockID] > 0 {
		// Not every predecessor has been visited: leave a placeholder and
		// complete it when the block is sealed.
		newIdent := c.env.Rename(old.Identifier)
		st.incompletePhis = append(st.incompletePhis, incompletePhi{
			oldPlace: old,
			newPlace: old.WithIdentifier(newIdent),
		})
		st.defs[oldID] = newIdent
		return newIdent
	}

	if preds == 1 {
		pred := block.SortedPreds()[0]
		ident := c.getIDAt(old, pred)
		st.defs[oldID] = ident
		return ident
	}

	// Record the definition before recursing so loop-carried lookups
	// terminate at this phi.
	newIdent := c.env.Rename(old.Identifier)
	st.defs[oldID] = newIdent
	return c.addPhi(block, old, old.WithIdentifier(newIdent))
}

func (c *converter) addPhi(block *hir.BasicBlock, oldPlace, newPlace hir.Place) *hir.Identifier {
	operands := make(map[hir.BlockID]hir.Place, block.Preds.Cardinality())
	for _, pred := range block.SortedPreds() {
		operands[pred] = oldPlace.WithIdentifier(c.getIDAt(oldPlace, pred))
	}
	block.Phis = append(block.Phis, &hir.Phi{Place: newPlace, Operands: operands})
	return newPlace.Identifier
}

func (c *converter) fixIncompletePhis(block *hir.BasicBlock) {
	st := c.state(block.ID)
	pending := st.incompletePhis
	st.incompletePhis = nil
	for _, phi := range pending {
		c.addPhi(block, phi.oldPlace, phi.newPlace)
	}
}
