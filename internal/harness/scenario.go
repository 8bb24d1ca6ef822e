package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one graph-shape check: a source program, the function to
// inspect, and what its SSA form must look like.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the path of the CUE program. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Source string `yaml:"source,omitempty"`

	// Program is an inline CUE program, used instead of Source.
	Program string `yaml:"program,omitempty"`

	// Function names the function to inspect. May be omitted when the
	// program defines exactly one.
	Function string `yaml:"function,omitempty"`

	// ExpectDiagnostics lists the diagnostic codes the function must fail
	// with, in order. A scenario with expected diagnostics has no graph to
	// assert on.
	ExpectDiagnostics []string `yaml:"expect_diagnostics,omitempty"`

	// Assertions validate the converted graph.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates one property of the converted graph.
type Assertion struct {
	// Type selects the check:
	//   - "phi_count": Block (or the whole function) holds exactly Count phis
	//   - "no_phis": the function and its closures hold no phis
	//   - "maybe_throw": at least one MaybeThrow terminal exists
	//   - "single_assignment": the graph passes SSA verification
	//   - "return_uses_phi": some return value is read from a phi
	//   - "preds": Block has exactly Count predecessors
	Type string `yaml:"type"`

	// Block is a block id as printed (bbN → N). Required by preds,
	// optional for phi_count.
	Block *int64 `yaml:"block,omitempty"`

	// Count is the expected number (phi_count, preds).
	Count *int `yaml:"count,omitempty"`

	// HandlerIsCatch additionally requires every MaybeThrow handler to be a
	// catch block (maybe_throw).
	HandlerIsCatch bool `yaml:"handler_is_catch,omitempty"`

	// Variable restricts return_uses_phi to phis of this variable.
	Variable string `yaml:"variable,omitempty"`
}

// Assertion type constants.
const (
	AssertPhiCount         = "phi_count"
	AssertNoPhis           = "no_phis"
	AssertMaybeThrow       = "maybe_throw"
	AssertSingleAssignment = "single_assignment"
	AssertReturnUsesPhi    = "return_uses_phi"
	AssertPreds            = "preds"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Source != "" && !filepath.IsAbs(scenario.Source) {
		scenario.Source = filepath.Join(filepath.Dir(path), scenario.Source)
	}
	if scenario.Source != "" {
		if _, err := os.Stat(scenario.Source); err != nil {
			return nil, fmt.Errorf("invalid scenario: source file not found: %s", scenario.Source)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. A relative Source is
// left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Source == "" && s.Program == "":
		return fmt.Errorf("one of source or program is required")
	case s.Source != "" && s.Program != "":
		return fmt.Errorf("source and program are mutually exclusive")
	}

	if len(s.ExpectDiagnostics) > 0 && len(s.Assertions) > 0 {
		return fmt.Errorf("expect_diagnostics and assertions are mutually exclusive")
	}
	if len(s.ExpectDiagnostics) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPhiCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for phi_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for phi_count", index)
		}
	case AssertPreds:
		if a.Block == nil {
			return fmt.Errorf("assertions[%d]: block is required for preds", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for preds", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for preds", index)
		}
	case AssertNoPhis, AssertMaybeThrow, AssertSingleAssignment, AssertReturnUsesPhi:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
