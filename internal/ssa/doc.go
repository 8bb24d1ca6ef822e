// Package ssa rewrites a finished block graph into static single assignment
// form without computing dominators.
//
// The converter follows the incremental construction of Braun et al.: each
// block records the reaching definition of every variable it has seen, and a
// lookup that misses walks to the predecessors. A block whose predecessors
// have not all been visited is unsealed; lookups there create placeholder
// phis that are completed once the last predecessor (the loop back-edge) is
// processed.
//
// Blocks are visited in reverse postorder from the entry, so every block
// except a loop header sees its predecessors first.
package ssa
