// Package builder assembles a function body's block graph while an AST walk
// drives it one statement at a time.
//
// The builder owns a single current block that receives pushed instructions,
// a stack of scope frames used to resolve break and continue targets, and a
// stack of active exception handlers. While a handler is active every pushed
// instruction ends its block with a MaybeThrow edge to the handler, so the
// catch block sees every potential throw site as a predecessor.
//
// Block lifecycle:
//
//	Reserved -> Current -> Completed
//	Reserved -----------> Completed   (Complete)
//
// Completed blocks are immutable until Build runs its cleanup passes and
// hands the finished graph to the caller.
//
// Lowering problems (unsupported or invalid input) are accumulated and
// reported together by Build. Broken lowering logic, such as a break with no
// enclosing target, fails immediately with a diagnostics.InvariantError.
package builder
