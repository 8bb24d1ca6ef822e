package harness

import "github.com/roach88/hirssa/internal/pipeline"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held, the expected diagnostics
	// matched and the replay reproduced the run.
	Pass bool `json:"pass"`

	// RunID identifies the compilation the assertions ran against.
	RunID string `json:"run_id"`

	// Function is the inspected function's compilation result. Nil when
	// the function could not be found.
	Function *pipeline.FunctionResult `json:"function,omitempty"`

	// Replayed reports whether recompiling the stored run reproduced every
	// function's fingerprint.
	Replayed bool `json:"replayed"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// SSA returns the printed SSA form of the inspected function, or "" if it
// did not compile.
func (r *Result) SSA() string {
	if r.Function == nil {
		return ""
	}
	return r.Function.SSA
}
