package diagnostics

import (
	"errors"
	"fmt"

	"github.com/roach88/hirssa/internal/hir"
)

// Category classifies a diagnostic.
type Category string

const (
	// CategoryInvariant marks a defect in the compiler itself.
	CategoryInvariant Category = "invariant"
	// CategoryTodo marks valid input the compiler does not support yet.
	CategoryTodo Category = "todo"
	// CategorySyntax marks invalid input.
	CategorySyntax Category = "syntax"
)

// Diagnostic is a non-fatal problem recorded during a pass.
type Diagnostic struct {
	Category Category     `json:"category"`
	Code     Code         `json:"code"`
	Message  string       `json:"message"`
	Loc      hir.Location `json:"loc"`
}

func (d *Diagnostic) Error() string {
	if d.Loc.IsGenerated() {
		return fmt.Sprintf("%s %s: %s", d.Code, d.Category, d.Message)
	}
	return fmt.Sprintf("%s %s: %s (%s)", d.Code, d.Category, d.Message, d.Loc)
}

// Todo creates a diagnostic for unsupported but valid input.
func Todo(code Code, loc hir.Location, format string, args ...any) *Diagnostic {
	return &Diagnostic{Category: CategoryTodo, Code: code, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// Syntax creates a diagnostic for invalid input.
func Syntax(code Code, loc hir.Location, format string, args ...any) *Diagnostic {
	return &Diagnostic{Category: CategorySyntax, Code: code, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// InvariantError reports an impossible state. It is returned immediately
// and aborts the pass; it should never reach users of a correct compiler.
type InvariantError struct {
	Code    Code
	Message string
	Loc     hir.Location
}

func (e *InvariantError) Error() string {
	if e.Loc.IsGenerated() {
		return fmt.Sprintf("%s invariant: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s invariant: %s (%s)", e.Code, e.Message, e.Loc)
}

// Invariant creates an InvariantError.
func Invariant(code Code, loc hir.Location, format string, args ...any) *InvariantError {
	return &InvariantError{Code: code, Message: fmt.Sprintf(format, args...), Loc: loc}
}

// IsInvariant returns true if err is or wraps an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsTodo returns true if err is or wraps a todo diagnostic.
func IsTodo(err error) bool {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Category == CategoryTodo
	}
	return false
}

// CodeOf extracts the code from a diagnostic or invariant error.
// Returns the empty code for any other error.
func CodeOf(err error) Code {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code
	}
	return ""
}
