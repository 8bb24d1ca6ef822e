// Package harness checks the shape of converted graphs against YAML
// scenarios.
//
// # Scenario Format
//
//	name: diamond_merges_with_phi
//	description: "An if/else that assigns in both arms merges with one phi"
//	source: ../functions/choose.cue   # or program: |  <inline CUE>
//	function: choose
//	assertions:
//	  - type: phi_count
//	    block: 1
//	    count: 1
//	  - type: preds
//	    block: 1
//	    count: 2
//	  - type: return_uses_phi
//	    variable: x
//	  - type: single_assignment
//
// A scenario for a program that must be rejected lists the expected
// diagnostic codes instead of assertions:
//
//	expect_diagnostics: [E206]
//
// # Assertion Types
//
//   - phi_count: a block (or the whole function when block is omitted) holds exactly count phis
//   - no_phis: the function and its closures hold no phis
//   - maybe_throw: some block ends in MaybeThrow; with handler_is_catch every handler is a catch block
//   - single_assignment: the graph passes ssa.Verify
//   - return_uses_phi: an explicit return reads a phi (optionally of one variable)
//   - preds: a block has exactly count predecessors
//
// # Determinism
//
// Every scenario runs in a fresh in-memory store with run ids derived from
// the scenario name. The run is stored and replayed before assertions are
// evaluated, so a scenario also fails when compiling the same program twice
// gives different graphs. Golden files hold the printed SSA form and are
// compared byte for byte.
package harness
