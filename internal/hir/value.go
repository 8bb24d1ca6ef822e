package hir

// InstructionValue is a sealed interface over the operations an instruction
// can perform. Only the types in this file implement it.
type InstructionValue interface {
	instructionValue() // Sealed
}

// InstructionKind distinguishes declarations from reassignments.
type InstructionKind string

const (
	InstructionConst    InstructionKind = "Const"
	InstructionLet      InstructionKind = "Let"
	InstructionReassign InstructionKind = "Reassign"
	InstructionCatch    InstructionKind = "Catch"
)

// PrimitiveKind selects which field of a Primitive carries the value.
type PrimitiveKind string

const (
	PrimitiveUndefined PrimitiveKind = "undefined"
	PrimitiveNull      PrimitiveKind = "null"
	PrimitiveBool      PrimitiveKind = "bool"
	PrimitiveInt       PrimitiveKind = "int"
	PrimitiveString    PrimitiveKind = "string"
)

// Primitive is a constant.
type Primitive struct {
	Kind PrimitiveKind
	Int  int64
	Str  string
	Bool bool
}

// LoadLocal reads a local variable.
type LoadLocal struct {
	Place Place
}

// LoadContext reads a variable shared with a closure.
type LoadContext struct {
	Place Place
}

// DeclareLocal declares a local variable without initializing it.
type DeclareLocal struct {
	Kind  InstructionKind
	Place Place
}

// DeclareContext declares a variable shared with a closure.
type DeclareContext struct {
	Kind  InstructionKind
	Place Place
}

// StoreLocal assigns Value to a local variable.
type StoreLocal struct {
	Kind  InstructionKind
	Place Place
	Value Place
}

// StoreContext assigns Value to a variable shared with a closure.
type StoreContext struct {
	Kind  InstructionKind
	Place Place
	Value Place
}

// LoadGlobal reads a name not bound in any enclosing function.
type LoadGlobal struct {
	Name string
}

// StoreGlobal writes a name not bound in any enclosing function.
type StoreGlobal struct {
	Name  string
	Value Place
}

// Binary applies an infix operator.
type Binary struct {
	Op    string
	Left  Place
	Right Place
}

// Unary applies a prefix operator.
type Unary struct {
	Op      string
	Operand Place
}

// Call invokes Callee with Args.
type Call struct {
	Callee Place
	Args   []Place
}

// FunctionExpression creates a closure. Func owns its own block graph,
// allocated from the same Env as the enclosing function.
type FunctionExpression struct {
	Name string
	Func *Function
}

func (*Primitive) instructionValue()          {}
func (*LoadLocal) instructionValue()          {}
func (*LoadContext) instructionValue()        {}
func (*DeclareLocal) instructionValue()       {}
func (*DeclareContext) instructionValue()     {}
func (*StoreLocal) instructionValue()         {}
func (*StoreContext) instructionValue()       {}
func (*LoadGlobal) instructionValue()         {}
func (*StoreGlobal) instructionValue()        {}
func (*Binary) instructionValue()             {}
func (*Unary) instructionValue()              {}
func (*Call) instructionValue()               {}
func (*FunctionExpression) instructionValue() {}

// Undefined returns the undefined constant.
func Undefined() *Primitive {
	return &Primitive{Kind: PrimitiveUndefined}
}

// Int returns an integer constant.
func Int(n int64) *Primitive {
	return &Primitive{Kind: PrimitiveInt, Int: n}
}

// String returns a string constant.
func String(s string) *Primitive {
	return &Primitive{Kind: PrimitiveString, Str: s}
}

// Bool returns a boolean constant.
func Bool(b bool) *Primitive {
	return &Primitive{Kind: PrimitiveBool, Bool: b}
}
