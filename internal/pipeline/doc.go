// Package pipeline runs the full compilation of a CUE source file: decode,
// validate, lower to HIR, convert to SSA and verify, one function at a time.
//
// Every run gets a UUIDv7 id so stored runs sort by creation time. Functions
// are processed sequentially in declaration order; the results of a run are
// therefore deterministic for a given source, apart from the run id.
//
// A failure inside one function (validation error, unsupported construct,
// invariant violation) is recorded on that function's result and does not
// stop the others. Only a source that cannot be decoded at all, or a
// cancelled context, fails the run.
package pipeline
