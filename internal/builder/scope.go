package builder

import (
	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

type scopeKind string

const (
	scopeLoop   scopeKind = "loop"
	scopeSwitch scopeKind = "switch"
	scopeLabel  scopeKind = "label"
)

// scope is a break/continue resolution frame. It lives only while one
// structured construct is being lowered.
type scope struct {
	kind          scopeKind
	label         string // empty when unlabeled
	breakBlock    hir.BlockID
	continueBlock hir.BlockID // loops only
}

// Guard releases a scope frame or exception handler pushed onto one of the
// builder's stacks. Release is idempotent; callers defer it so the stack is
// restored on every exit path.
type Guard struct {
	release func() error
	done    bool
}

// Release pops the guarded frame. It returns an invariant error if frames
// pushed after this one were never released; those frames are discarded.
func (g *Guard) Release() error {
	if g.done {
		return nil
	}
	g.done = true
	return g.release()
}

func (b *Builder) pushScope(s scope) *Guard {
	depth := len(b.scopes)
	b.scopes = append(b.scopes, s)
	return &Guard{release: func() error {
		var err error
		if len(b.scopes) != depth+1 {
			err = diagnostics.Invariant(diagnostics.ErrCodeScopeMismatch, hir.Location{},
				"%s scope released with %d unreleased inner scope(s)", s.kind, len(b.scopes)-depth-1)
		}
		b.scopes = b.scopes[:depth]
		return err
	}}
}

// PushTryCatch makes handler the innermost exception handler until the
// returned guard is released.
func (b *Builder) PushTryCatch(handler hir.BlockID) *Guard {
	depth := len(b.handlers)
	b.handlers = append(b.handlers, handler)
	return &Guard{release: func() error {
		var err error
		if len(b.handlers) != depth+1 {
			err = diagnostics.Invariant(diagnostics.ErrCodeScopeMismatch, hir.Location{},
				"exception handler bb%d released out of order", handler)
		}
		b.handlers = b.handlers[:depth]
		return err
	}}
}

// PushLoop pushes a loop frame until the returned guard is released.
func (b *Builder) PushLoop(label string, continueBlock, breakBlock hir.BlockID) *Guard {
	return b.pushScope(scope{kind: scopeLoop, label: label, breakBlock: breakBlock, continueBlock: continueBlock})
}

// PushSwitch pushes a switch frame until the returned guard is released.
func (b *Builder) PushSwitch(label string, breakBlock hir.BlockID) *Guard {
	return b.pushScope(scope{kind: scopeSwitch, label: label, breakBlock: breakBlock})
}

// PushLabel pushes a label frame until the returned guard is released.
func (b *Builder) PushLabel(label string, breakBlock hir.BlockID) *Guard {
	return b.pushScope(scope{kind: scopeLabel, label: label, breakBlock: breakBlock})
}

// within runs fn and then releases g, even if fn panics or fails.
func within(g *Guard, fn func() error) (err error) {
	defer func() { err = multierr.Append(err, g.Release()) }()
	return fn()
}

// EnterTryCatch lowers a guarded region: every instruction pushed by fn gains
// a MaybeThrow edge to handler.
func (b *Builder) EnterTryCatch(handler hir.BlockID, fn func() error) error {
	return within(b.PushTryCatch(handler), fn)
}

// EnterLoop runs fn with a loop frame in scope.
func (b *Builder) EnterLoop(label string, continueBlock, breakBlock hir.BlockID, fn func() error) error {
	return within(b.PushLoop(label, continueBlock, breakBlock), fn)
}

// Switch runs fn with a switch frame in scope.
func (b *Builder) Switch(label string, breakBlock hir.BlockID, fn func() error) error {
	return within(b.PushSwitch(label, breakBlock), fn)
}

// Label runs fn with a label frame in scope.
func (b *Builder) Label(label string, breakBlock hir.BlockID, fn func() error) error {
	return within(b.PushLabel(label, breakBlock), fn)
}

// LookupBreak resolves a break target, innermost frame first. An unlabeled
// break matches the nearest loop or switch; a labeled break matches the
// frame of any kind carrying that label.
func (b *Builder) LookupBreak(label string) (hir.BlockID, error) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if label == "" && (s.kind == scopeLoop || s.kind == scopeSwitch) {
			return s.breakBlock, nil
		}
		if label != "" && s.label == label {
			return s.breakBlock, nil
		}
	}
	if label != "" {
		return hir.NoBlock, diagnostics.Invariant(diagnostics.ErrCodeBreakTarget, hir.Location{},
			"expected a loop, switch or label named %q to be in scope", label)
	}
	return hir.NoBlock, diagnostics.Invariant(diagnostics.ErrCodeBreakTarget, hir.Location{},
		"expected a loop or switch to be in scope")
}

// LookupContinue resolves a continue target. Only loop frames are eligible;
// a label naming a non-loop construct is an invariant error.
func (b *Builder) LookupContinue(label string) (hir.BlockID, error) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		s := b.scopes[i]
		if s.kind == scopeLoop {
			if label == "" || s.label == label {
				return s.continueBlock, nil
			}
		} else if label != "" && s.label == label {
			return hir.NoBlock, diagnostics.Invariant(diagnostics.ErrCodeContinueNonLoop, hir.Location{},
				"continue may only refer to a labeled loop, %q is a %s", label, s.kind)
		}
	}
	return hir.NoBlock, diagnostics.Invariant(diagnostics.ErrCodeContinueTarget, hir.Location{},
		"expected a loop to be in scope")
}
