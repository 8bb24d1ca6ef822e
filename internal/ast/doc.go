// Package ast is the structured-statement input tree the lowering driver
// walks. It is produced by package compiler from CUE source and imports
// nothing internal.
//
// Statements and expressions are sealed interfaces: only the node types in
// this package implement them, so type switches over them are exhaustive.
package ast
