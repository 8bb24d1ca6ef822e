package diagnostics

import (
	"go.uber.org/multierr"
)

// Bag accumulates diagnostics during a pass. Not safe for concurrent use:
// one function is lowered by one goroutine.
type Bag struct {
	diagnostics []*Diagnostic
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Record adds a diagnostic.
func (b *Bag) Record(d *Diagnostic) {
	b.diagnostics = append(b.diagnostics, d)
}

// HasErrors reports whether anything was recorded.
func (b *Bag) HasErrors() bool {
	return len(b.diagnostics) > 0
}

// Len returns the number of recorded diagnostics.
func (b *Bag) Len() int {
	return len(b.diagnostics)
}

// Diagnostics returns a copy of the recorded diagnostics in order.
func (b *Bag) Diagnostics() []*Diagnostic {
	out := make([]*Diagnostic, len(b.diagnostics))
	copy(out, b.diagnostics)
	return out
}

// Err combines every recorded diagnostic into one error, or returns nil.
// Use multierr.Errors or Flatten to recover the individual diagnostics.
func (b *Bag) Err() error {
	var err error
	for _, d := range b.diagnostics {
		err = multierr.Append(err, d)
	}
	return err
}

// Flatten splits a combined error back into diagnostics. Errors that are
// not diagnostics are wrapped as generic todo entries so nothing is lost.
func Flatten(err error) []*Diagnostic {
	var out []*Diagnostic
	for _, e := range multierr.Errors(err) {
		if d, ok := e.(*Diagnostic); ok {
			out = append(out, d)
			continue
		}
		if ie, ok := e.(*InvariantError); ok {
			out = append(out, &Diagnostic{Category: CategoryInvariant, Code: ie.Code, Message: ie.Message, Loc: ie.Loc})
			continue
		}
		out = append(out, &Diagnostic{Category: CategoryTodo, Message: e.Error()})
	}
	return out
}
