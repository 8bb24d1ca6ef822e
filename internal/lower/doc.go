// Package lower walks an ast.Function and drives a builder.Builder statement
// by statement, producing the function's HIR.
//
// Name resolution is lexical. A name bound by a parameter, let or catch
// clause of the current function lowers to LoadLocal/StoreLocal. A name
// bound in an enclosing function is captured: it is listed in the closure's
// Context and read through the same identifier. A binding that is both
// captured and reassigned anywhere is a context variable and is accessed
// only through DeclareContext, StoreContext and LoadContext, so SSA
// conversion leaves it alone. Names with no binding are globals.
package lower
