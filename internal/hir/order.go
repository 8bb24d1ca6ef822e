package hir

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// ReversePostorder returns the blocks reachable from the entry in reverse
// postorder over Successors. Every block appears after its predecessors
// except along loop back-edges.
func ReversePostorder(g *Graph) []BlockID {
	visited := mapset.NewThreadUnsafeSet[BlockID]()
	var postorder []BlockID

	var visit func(id BlockID)
	visit = func(id BlockID) {
		if !visited.Add(id) {
			return
		}
		b, ok := g.Blocks[id]
		if !ok {
			return
		}
		for _, succ := range Successors(b.Terminal) {
			visit(succ)
		}
		postorder = append(postorder, id)
	}
	visit(g.Entry)

	slices.Reverse(postorder)
	return postorder
}

// VisitOrder returns every block of g exactly once: the reverse postorder
// from the entry, then any block unreachable from the entry in graph order.
func VisitOrder(g *Graph) []BlockID {
	order := ReversePostorder(g)
	seen := mapset.NewThreadUnsafeSet(order...)
	for _, id := range g.Order {
		if _, ok := g.Blocks[id]; ok && seen.Add(id) {
			order = append(order, id)
		}
	}
	return order
}
