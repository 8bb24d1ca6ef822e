// Package hir defines the control-flow-graph intermediate representation that
// function bodies are lowered into before SSA conversion.
//
// This package contains the data model and the helpers every pass shares:
// successor and operand iteration, reverse postorder, the text printer and
// the content fingerprint. It imports nothing internal, so the builder, the
// SSA converter and the pipeline can all depend on it without cycles.
//
// Key design constraints:
//   - Blocks live in a flat id-indexed map; blocks never point at each other,
//     so loop back-edges cannot create ownership cycles
//   - Terminal and InstructionValue are sealed interfaces; the helpers in
//     terminal.go and visit.go switch over every variant
//   - Identifier ids are unique per definition, DeclarationID is shared by
//     every SSA renaming of one source variable
package hir
