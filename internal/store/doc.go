// Package store provides SQLite-backed storage for compilation runs.
//
// Each run records the exact source it compiled, so any stored run can be
// replayed later and its function fingerprints compared against a fresh
// compilation:
//   - runs: one row per compilation, with the source text and its hash
//   - functions: one row per top-level function, in declaration order, with
//     its printed HIR and SSA, fingerprint and diagnostics
//
// # Ordering
//
// Runs are ordered by seq, a logical counter assigned on insert, never by
// wall-clock time. All list queries use ORDER BY seq ASC, id ASC COLLATE
// BINARY so results are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
