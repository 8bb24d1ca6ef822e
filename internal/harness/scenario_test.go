package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Diamond(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/diamond.yaml")
	require.NoError(t, err)

	assert.Equal(t, "diamond_merges_with_phi", scenario.Name)
	assert.Equal(t, "choose", scenario.Function)
	assert.Equal(t, filepath.Join("testdata", "functions", "choose.cue"), scenario.Source)
	require.Len(t, scenario.Assertions, 5)

	first := scenario.Assertions[0]
	assert.Equal(t, AssertPhiCount, first.Type)
	require.NotNil(t, first.Block)
	assert.Equal(t, int64(1), *first.Block)
	require.NotNil(t, first.Count)
	assert.Equal(t, 1, *first.Count)

	assert.Nil(t, scenario.Assertions[1].Block, "whole-function phi_count")
	assert.Equal(t, "x", scenario.Assertions[3].Variable)
}

func TestLoadScenario_ExpectDiagnostics(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/throw_in_try.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"E206"}, scenario.ExpectDiagnostics)
	assert.Empty(t, scenario.Assertions)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
source: nowhere.cue
assertions:
  - type: no_phis
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source file not found")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
program: "function: f: {body: []}"
assertion:
  - type: no_phis
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nprogram: p\nassertions: [{type: no_phis}]",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nprogram: p\nassertions: [{type: no_phis}]",
			want: "description is required",
		},
		{
			name: "no program",
			yaml: "name: n\ndescription: d\nassertions: [{type: no_phis}]",
			want: "one of source or program is required",
		},
		{
			name: "source and program",
			yaml: "name: n\ndescription: d\nsource: a.cue\nprogram: p\nassertions: [{type: no_phis}]",
			want: "mutually exclusive",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nprogram: p",
			want: "assertions list is required",
		},
		{
			name: "assertions and expected diagnostics",
			yaml: "name: n\ndescription: d\nprogram: p\nexpect_diagnostics: [E206]\nassertions: [{type: no_phis}]",
			want: "expect_diagnostics and assertions are mutually exclusive",
		},
		{
			name: "missing type",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{count: 1}]",
			want: "assertions[0]: type is required",
		},
		{
			name: "unknown type",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{type: phi_sum}]",
			want: `unknown assertion type "phi_sum"`,
		},
		{
			name: "phi_count without count",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{type: phi_count, block: 1}]",
			want: "count is required for phi_count",
		},
		{
			name: "negative phi_count",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{type: phi_count, count: -1}]",
			want: "count must be non-negative for phi_count",
		},
		{
			name: "preds without block",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{type: preds, count: 2}]",
			want: "block is required for preds",
		},
		{
			name: "preds without count",
			yaml: "name: n\ndescription: d\nprogram: p\nassertions: [{type: no_phis}, {type: preds, block: 2}]",
			want: "assertions[1]: count is required for preds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_ZeroCountIsExplicit(t *testing.T) {
	scenario, err := ParseScenario([]byte("name: n\ndescription: d\nprogram: p\nassertions: [{type: phi_count, count: 0}]"))
	require.NoError(t, err)
	require.NotNil(t, scenario.Assertions[0].Count)
	assert.Equal(t, 0, *scenario.Assertions[0].Count)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertPreds,
		Expected: "bb1 has 2 predecessor(s)",
		Actual:   "1 predecessor(s): [bb0]",
		Graph:    "f(): $0\nbb0 (block):",
	}

	want := "Assertion failed: preds\n" +
		"  Expected: bb1 has 2 predecessor(s)\n" +
		"  Actual: 1 predecessor(s): [bb0]\n" +
		"\nGraph:\n" +
		"  f(): $0\n" +
		"  bb0 (block):\n"
	assert.Equal(t, want, err.Error())
}
