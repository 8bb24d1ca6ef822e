package testutil

import "fmt"

// SequentialRunIDs hands out "<prefix>-1", "<prefix>-2", ... so runs made
// in a test get predictable ids without listing them up front.
//
// It satisfies pipeline.RunIDGenerator.
type SequentialRunIDs struct {
	prefix string
	clock  *SequenceClock
}

// NewSequentialRunIDs creates a generator. An empty prefix becomes "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix, clock: NewSequenceClock()}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.clock.Next())
}

// Reset restarts the sequence at 1.
func (g *SequentialRunIDs) Reset() {
	g.clock.Reset()
}
