package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/hirssa/internal/pipeline"
)

// FunctionReplay compares one function of a stored run with its recompiled
// result.
type FunctionReplay struct {
	Name     string `json:"name"`
	Stored   string `json:"stored"`
	Replayed string `json:"replayed"`
	Match    bool   `json:"match"`
	// Diff is set when the printed SSA differs.
	Diff string `json:"diff,omitempty"`
}

// ReplayResult is the outcome of replaying a stored run.
type ReplayResult struct {
	RunID           string           `json:"run_id"`
	ReplayID        string           `json:"replay_id"`
	StoredVersion   string           `json:"stored_version"`
	CompilerVersion string           `json:"compiler_version"`
	Functions       []FunctionReplay `json:"functions"`
	// Missing lists functions present on only one side.
	Missing []string `json:"missing,omitempty"`
}

// Matched reports whether every function reproduced its stored fingerprint.
func (r *ReplayResult) Matched() bool {
	if len(r.Missing) > 0 {
		return false
	}
	for _, fn := range r.Functions {
		if !fn.Match {
			return false
		}
	}
	return true
}

// Mismatches returns the number of functions whose fingerprint changed.
func (r *ReplayResult) Mismatches() int {
	n := len(r.Missing)
	for _, fn := range r.Functions {
		if !fn.Match {
			n++
		}
	}
	return n
}

// Replay recompiles the stored source of run id with p and compares each
// function's fingerprint with the stored one. Functions are matched by
// name. A function that failed both times matches when its diagnostic codes
// are the same.
//
// The replayed run is not written back to the store.
func (s *Store) Replay(ctx context.Context, p *pipeline.Pipeline, id string) (*ReplayResult, error) {
	stored, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	replayed, err := p.CompileSource(ctx, stored.Filename, stored.Source)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}

	result := &ReplayResult{
		RunID:           stored.ID,
		ReplayID:        replayed.ID,
		StoredVersion:   stored.CompilerVersion,
		CompilerVersion: replayed.CompilerVersion,
	}

	seen := make(map[string]bool, len(stored.Functions))
	for i := range stored.Functions {
		old := &stored.Functions[i]
		seen[old.Name] = true
		cur, ok := replayed.Function(old.Name)
		if !ok {
			result.Missing = append(result.Missing, old.Name)
			continue
		}
		fr := FunctionReplay{
			Name:     old.Name,
			Stored:   old.Fingerprint,
			Replayed: cur.Fingerprint,
			Match:    sameOutcome(old, cur),
		}
		if !fr.Match && old.SSA != cur.SSA {
			fr.Diff = lineDiff(old.SSA, cur.SSA)
		}
		result.Functions = append(result.Functions, fr)
	}
	for i := range replayed.Functions {
		if name := replayed.Functions[i].Name; !seen[name] {
			result.Missing = append(result.Missing, name)
		}
	}
	return result, nil
}

func sameOutcome(old, cur *pipeline.FunctionResult) bool {
	if old.Fingerprint != cur.Fingerprint {
		return false
	}
	if len(old.Diagnostics) != len(cur.Diagnostics) {
		return false
	}
	for i := range old.Diagnostics {
		if old.Diagnostics[i].Code != cur.Diagnostics[i].Code {
			return false
		}
	}
	return true
}

// lineDiff renders a line-by-line diff of two printed functions.
func lineDiff(stored, replayed string) string {
	return cmp.Diff(strings.Split(stored, "\n"), strings.Split(replayed, "\n"))
}
