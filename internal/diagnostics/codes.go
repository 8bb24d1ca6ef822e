package diagnostics

// Code identifies a diagnostic for tooling and tests.
type Code string

// Graph builder and lowering codes.
const (
	ErrCodeBreakTarget        Code = "E201" // no loop, switch or label in scope for break
	ErrCodeContinueTarget     Code = "E202" // no loop in scope for continue
	ErrCodeContinueNonLoop    Code = "E203" // continue names a label that is not a loop
	ErrCodeScopeMismatch      Code = "E204" // scope frame popped out of order
	ErrCodeUnreachableClosure Code = "E205" // closure inside unreachable code
	ErrCodeThrowInTry         Code = "E206" // throw inside an active try region
	ErrCodeDuplicateDefault   Code = "E207" // switch with more than one default
	ErrCodeRedeclared         Code = "E208" // name declared twice in one scope
)

// SSA converter and verifier codes.
const (
	ErrCodeBlockRevisited     Code = "E301" // block visited twice
	ErrCodeRootContext        Code = "E302" // outermost function captures context
	ErrCodeClosureEntryPreds  Code = "E303" // closure entry already has predecessors
	ErrCodeRootEntryPreds     Code = "E304" // outermost entry block has predecessors
	ErrCodeMultipleDefinition Code = "E310" // identifier id defined more than once
	ErrCodePhiOperands        Code = "E311" // phi operands do not match block preds
	ErrCodeRedundantPhi       Code = "E312" // phi in a block with fewer than two preds
	ErrCodeUndefinedOperand   Code = "E313" // operand neither defined nor free
)
