package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenText is what a scenario's golden file holds: the printed SSA form of
// the inspected function, or its diagnostics when it failed to compile.
func GoldenText(result *Result) []byte {
	if result.Function == nil {
		return nil
	}
	if !result.Function.OK() {
		var out []byte
		for _, d := range result.Function.Diagnostics {
			out = fmt.Appendf(out, "%s\n", d.Error())
		}
		return out
	}
	return []byte(result.Function.SSA)
}

// RunWithGolden executes a scenario and compares the printed graph against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the graph doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, GoldenText(result))
}
