// Package diagnostics is the diagnostic sink shared by lowering, graph
// building and SSA conversion.
//
// Two kinds of problem are reported:
//   - Diagnostic: a user-facing problem (todo or syntax) recorded in a Bag
//     and reported collectively once the pass finishes
//   - InvariantError: an internal-compiler-error that aborts the pass at once
//
// Both carry a stable code ("E2xx" builder, "E3xx" SSA) so CLI output and
// tests can match on them.
package diagnostics
