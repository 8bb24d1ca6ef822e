package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/hirssa/internal/ast"
)

// Validation error codes (E100-E199)
const (
	// Names (E101-E103)
	ErrInvalidName    = "E101" // identifier or label is not a valid name
	ErrDuplicateParam = "E102" // parameter listed twice
	ErrDuplicateLabel = "E103" // label shadows an enclosing label

	// Control transfer (E104-E107)
	ErrUndefinedLabel  = "E104" // break/continue names no enclosing label
	ErrContinueNonLoop = "E105" // labelled continue targets a non-loop statement
	ErrBreakOutside    = "E106" // unlabelled break outside loop or switch
	ErrContinueOutside = "E107" // unlabelled continue outside loop

	// Bindings and operators (E108-E110)
	ErrAssignConst      = "E108" // assignment to a const binding
	ErrConstWithoutInit = "E109" // const declared without a value
	ErrUnknownOperator  = "E110" // operator not in the supported set
)

// ValidationError represents a source validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a decoded function for errors the lowering cannot report
// precisely: malformed names, control transfers with no target, and writes
// to const bindings. Returns all errors found (does not fail-fast).
// Nested function literals are validated with fresh label and loop context.
func Validate(fn *ast.Function) []ValidationError {
	v := &validator{}
	v.function(fn)
	return v.errs
}

var namePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var binaryOperators = []string{
	"+", "-", "*", "/", "%", "**",
	"==", "!=", "===", "!==", "<", "<=", ">", ">=",
	"&&", "||", "??",
	"&", "|", "^", "<<", ">>", ">>>",
}

var unaryOperators = []string{"-", "+", "!", "~", "typeof", "void"}

type labelFrame struct {
	name   string
	isLoop bool
}

type validator struct {
	errs []ValidationError

	// Per-function control context, reset for nested literals.
	labels      []labelFrame
	loopDepth   int
	switchDepth int

	// Lexical scopes: name -> const.
	scopes []map[string]bool
}

func (v *validator) errorf(code, field string, p ast.Pos, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Line:    p.Line,
	})
}

func (v *validator) checkName(field, name string, p ast.Pos) {
	if !namePattern.MatchString(name) {
		v.errorf(ErrInvalidName, field, p, "invalid name %q", name)
	}
}

func (v *validator) pushScope() { v.scopes = append(v.scopes, make(map[string]bool)) }
func (v *validator) popScope()  { v.scopes = v.scopes[:len(v.scopes)-1] }

func (v *validator) declare(name string, isConst bool) {
	v.scopes[len(v.scopes)-1][name] = isConst
}

// isConst reports whether name resolves to a const binding.
func (v *validator) isConst(name string) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if c, ok := v.scopes[i][name]; ok {
			return c
		}
	}
	return false
}

func (v *validator) function(fn *ast.Function) {
	savedLabels, savedLoops, savedSwitches := v.labels, v.loopDepth, v.switchDepth
	v.labels, v.loopDepth, v.switchDepth = nil, 0, 0
	defer func() { v.labels, v.loopDepth, v.switchDepth = savedLabels, savedLoops, savedSwitches }()

	v.pushScope()
	defer v.popScope()

	seen := make(map[string]bool)
	for i, p := range fn.Params {
		field := fmt.Sprintf("params[%d]", i)
		v.checkName(field, p.Name, p.Pos)
		if seen[p.Name] {
			v.errorf(ErrDuplicateParam, field, p.Pos, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		v.declare(p.Name, false)
	}
	v.stmts(fn.Body)
}

func (v *validator) block(stmts []ast.Stmt) {
	v.pushScope()
	defer v.popScope()
	v.stmts(stmts)
}

func (v *validator) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		v.stmt(s)
	}
}

// loop validates a loop body. label is the loop's own label, if any.
func (v *validator) loop(label string, p ast.Pos, body func()) {
	if label != "" {
		v.pushLabel(label, true, p)
		defer v.popLabel()
	}
	v.loopDepth++
	defer func() { v.loopDepth-- }()
	body()
}

func (v *validator) pushLabel(name string, isLoop bool, p ast.Pos) {
	v.checkName("label", name, p)
	if slices.ContainsFunc(v.labels, func(f labelFrame) bool { return f.name == name }) {
		v.errorf(ErrDuplicateLabel, "label", p, "label %q is already declared in an enclosing statement", name)
	}
	v.labels = append(v.labels, labelFrame{name: name, isLoop: isLoop})
}

func (v *validator) popLabel() { v.labels = v.labels[:len(v.labels)-1] }

func (v *validator) findLabel(name string) (labelFrame, bool) {
	for i := len(v.labels) - 1; i >= 0; i-- {
		if v.labels[i].name == name {
			return v.labels[i], true
		}
	}
	return labelFrame{}, false
}

func (v *validator) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Let:
		v.checkName("let.name", s.Name, s.Pos)
		if s.Const && s.Value == nil {
			v.errorf(ErrConstWithoutInit, "let.value", s.Pos, "const %q must be initialized", s.Name)
		}
		v.expr(s.Value)
		v.declare(s.Name, s.Const)

	case *ast.Assign:
		v.checkName("assign.name", s.Name, s.Pos)
		if v.isConst(s.Name) {
			v.errorf(ErrAssignConst, "assign.name", s.Pos, "assignment to const %q", s.Name)
		}
		v.expr(s.Value)

	case *ast.ExprStmt:
		v.expr(s.X)

	case *ast.If:
		v.expr(s.Test)
		v.block(s.Then)
		if s.Else != nil {
			v.block(s.Else)
		}

	case *ast.While:
		v.expr(s.Test)
		v.loop(s.Label, s.Pos, func() { v.block(s.Body) })

	case *ast.DoWhile:
		v.loop(s.Label, s.Pos, func() { v.block(s.Body) })
		v.expr(s.Test)

	case *ast.For:
		v.pushScope()
		defer v.popScope()
		if s.Init != nil {
			v.stmt(s.Init)
		}
		v.expr(s.Test)
		v.loop(s.Label, s.Pos, func() {
			if s.Update != nil {
				v.stmt(s.Update)
			}
			v.block(s.Body)
		})

	case *ast.Break:
		if s.Label != "" {
			if _, ok := v.findLabel(s.Label); !ok {
				v.errorf(ErrUndefinedLabel, "break.label", s.Pos, "undefined label %q", s.Label)
			}
			return
		}
		if v.loopDepth == 0 && v.switchDepth == 0 {
			v.errorf(ErrBreakOutside, "break", s.Pos, "break outside of a loop or switch")
		}

	case *ast.Continue:
		if s.Label != "" {
			f, ok := v.findLabel(s.Label)
			switch {
			case !ok:
				v.errorf(ErrUndefinedLabel, "continue.label", s.Pos, "undefined label %q", s.Label)
			case !f.isLoop:
				v.errorf(ErrContinueNonLoop, "continue.label", s.Pos, "label %q does not name a loop", s.Label)
			}
			return
		}
		if v.loopDepth == 0 {
			v.errorf(ErrContinueOutside, "continue", s.Pos, "continue outside of a loop")
		}

	case *ast.Return:
		v.expr(s.Value)

	case *ast.Throw:
		v.expr(s.Value)

	case *ast.Try:
		v.block(s.Block)
		if s.Catch != nil {
			v.pushScope()
			if s.Catch.Param != "" {
				v.checkName("catch.param", s.Catch.Param, s.Catch.Pos)
				v.declare(s.Catch.Param, false)
			}
			v.block(s.Catch.Body)
			v.popScope()
		}

	case *ast.Labeled:
		v.pushLabel(s.Name, false, s.Pos)
		v.block(s.Body)
		v.popLabel()

	case *ast.Switch:
		v.expr(s.Test)
		if s.Label != "" {
			v.pushLabel(s.Label, false, s.Pos)
			defer v.popLabel()
		}
		v.switchDepth++
		defer func() { v.switchDepth-- }()
		for _, c := range s.Cases {
			v.expr(c.Test)
			v.block(c.Body)
		}
	}
}

func (v *validator) expr(e ast.Expr) {
	switch e := e.(type) {
	case nil:
	case *ast.Ref:
		v.checkName("ref", e.Name, e.Pos)
	case *ast.Binary:
		if !slices.Contains(binaryOperators, e.Op) {
			v.errorf(ErrUnknownOperator, "binary.op", e.Pos, "unknown binary operator %q", e.Op)
		}
		v.expr(e.Left)
		v.expr(e.Right)
	case *ast.Unary:
		if !slices.Contains(unaryOperators, e.Op) {
			v.errorf(ErrUnknownOperator, "unary.op", e.Pos, "unknown unary operator %q", e.Op)
		}
		v.expr(e.Operand)
	case *ast.Call:
		v.expr(e.Callee)
		for _, a := range e.Args {
			v.expr(a)
		}
	case *ast.FuncLit:
		v.function(e.Func)
	}
}
