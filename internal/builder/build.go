package builder

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

// Build finishes the graph and transfers it to the caller. It orders the
// blocks, prunes unreachable ones, simplifies terminals whose targets were
// pruned, numbers instructions and computes predecessors.
//
// If any diagnostics were accumulated during lowering (or by the pruning
// here) Build returns them combined and no graph.
func (b *Builder) Build() (*hir.Graph, error) {
	g := b.reversePostorderedBlocks()
	removeUnreachableForUpdates(g)
	removeDeadDoWhileStatements(g)
	removeUnnecessaryTryCatch(g)
	markInstructionIDs(g)
	markPredecessors(g)

	if err := b.bag.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// reversePostorderedBlocks orders completed blocks in reverse postorder from
// the entry. A terminal's fallthrough is visited first and as "unused": a
// block reached only as some construct's fallthrough is kept (so terminals
// can still name it) but emptied and marked Unreachable. Blocks never
// reached are dropped.
func (b *Builder) reversePostorderedBlocks() *hir.Graph {
	visited := mapset.NewThreadUnsafeSet[hir.BlockID]()
	used := mapset.NewThreadUnsafeSet[hir.BlockID]()
	usedFallthroughs := mapset.NewThreadUnsafeSet[hir.BlockID]()
	var postorder []hir.BlockID

	var visit func(id hir.BlockID, isUsed bool)
	visit = func(id hir.BlockID, isUsed bool) {
		wasUsed := used.Contains(id)
		wasVisited := !visited.Add(id)
		if isUsed {
			used.Add(id)
		}
		if wasVisited && (wasUsed || !isUsed) {
			return
		}

		block, ok := b.completed[id]
		if !ok {
			return
		}
		successors := hir.Successors(block.Terminal)
		slices.Reverse(successors)
		if ft, ok := hir.Fallthrough(block.Terminal); ok {
			if isUsed {
				usedFallthroughs.Add(ft)
			}
			visit(ft, false)
		}
		for _, succ := range successors {
			visit(succ, isUsed)
		}
		if !wasVisited {
			postorder = append(postorder, id)
		}
	}
	visit(b.entry, true)

	g := hir.NewGraph(b.entry)
	for i := len(postorder) - 1; i >= 0; i-- {
		id := postorder[i]
		block := b.completed[id]
		switch {
		case used.Contains(id):
			g.Add(block)
		case usedFallthroughs.Contains(id):
			meta := hir.Meta(block.Terminal)
			g.Add(hir.NewBasicBlock(id, block.Kind, nil, &hir.Unreachable{
				TerminalMeta: hir.TerminalMeta{ID: meta.ID, Loc: meta.Loc},
			}))
		}
	}

	b.checkUnreachableClosures(g)
	return g
}

// checkUnreachableClosures records a todo for every closure that lives in
// code the ordering pass discarded: its body could still hold hoisted
// declarations the rest of the function depends on.
func (b *Builder) checkUnreachableClosures(g *hir.Graph) {
	ids := make([]hir.BlockID, 0, len(b.completed))
	for id := range b.completed {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if kept, ok := g.Blocks[id]; ok && kept == b.completed[id] {
			continue
		}
		for _, instr := range b.completed[id].Instructions {
			if _, ok := instr.Value.(*hir.FunctionExpression); ok {
				b.bag.Record(diagnostics.Todo(diagnostics.ErrCodeUnreachableClosure, instr.Loc,
					"functions with unreachable code that may contain hoisted declarations are not supported"))
			}
		}
	}
}

// removeUnreachableForUpdates drops a For's update block if it was pruned
// (the loop body never completes normally).
func removeUnreachableForUpdates(g *hir.Graph) {
	for _, block := range g.Ordered() {
		if f, ok := block.Terminal.(*hir.For); ok && f.Update != hir.NoBlock {
			if _, exists := g.Blocks[f.Update]; !exists {
				f.Update = hir.NoBlock
			}
		}
	}
}

// removeDeadDoWhileStatements turns a DoWhile whose test block was pruned
// into a plain jump to its body.
func removeDeadDoWhileStatements(g *hir.Graph) {
	for _, block := range g.Ordered() {
		if dw, ok := block.Terminal.(*hir.DoWhile); ok {
			if _, exists := g.Blocks[dw.Test]; !exists {
				block.Terminal = &hir.Goto{
					TerminalMeta: dw.TerminalMeta,
					Block:        dw.Loop,
					Variant:      hir.GotoBreak,
				}
			}
		}
	}
}

// removeUnnecessaryTryCatch turns a Try whose handler was pruned (nothing in
// the region can throw) into a plain jump to the region.
func removeUnnecessaryTryCatch(g *hir.Graph) {
	for _, block := range g.Ordered() {
		if try, ok := block.Terminal.(*hir.Try); ok {
			if _, exists := g.Blocks[try.Handler]; !exists {
				block.Terminal = &hir.Goto{
					TerminalMeta: try.TerminalMeta,
					Block:        try.Block,
					Variant:      hir.GotoBreak,
				}
			}
		}
	}
}

// markInstructionIDs numbers instructions and terminals sequentially in
// block order, starting at 1.
func markInstructionIDs(g *hir.Graph) {
	var next hir.InstructionID
	for _, block := range g.Ordered() {
		for _, instr := range block.Instructions {
			next++
			instr.ID = next
		}
		next++
		hir.Meta(block.Terminal).ID = next
	}
}

// markPredecessors recomputes every block's predecessor set by walking the
// successor edges from the entry. Back-edges and MaybeThrow edges count.
func markPredecessors(g *hir.Graph) {
	for _, block := range g.Blocks {
		block.Preds.Clear()
	}

	visited := mapset.NewThreadUnsafeSet[hir.BlockID]()
	var visit func(id hir.BlockID, prev hir.BlockID)
	visit = func(id hir.BlockID, prev hir.BlockID) {
		block, ok := g.Blocks[id]
		if !ok {
			return
		}
		if prev != hir.NoBlock {
			block.Preds.Add(prev)
		}
		if !visited.Add(id) {
			return
		}
		for _, succ := range hir.Successors(block.Terminal) {
			visit(succ, id)
		}
	}
	visit(g.Entry, hir.NoBlock)
}
