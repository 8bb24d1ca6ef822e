package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hirssa/internal/pipeline"
)

// compileResponse mirrors the JSON printed by compile.
type compileResponse struct {
	Status string    `json:"status"`
	RunID  string    `json:"run_id"`
	Error  *CLIError `json:"error"`
	Data   struct {
		Runs []struct {
			ID              string `json:"id"`
			Filename        string `json:"filename"`
			CompilerVersion string `json:"compiler_version"`
			Functions       []struct {
				Name        string `json:"name"`
				SSA         string `json:"ssa"`
				Fingerprint string `json:"fingerprint"`
				Blocks      int    `json:"blocks"`
				Phis        int    `json:"phis"`
				Diagnostics []struct {
					Category string `json:"category"`
					Code     string `json:"code"`
				} `json:"diagnostics"`
			} `json:"functions"`
		} `json:"runs"`
	} `json:"data"`
}

func TestCompilePrintsSSA(t *testing.T) {
	file := writeFile(t, t.TempDir(), "identity.cue", identityProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file)
	require.NoError(t, err)

	assert.Contains(t, out, identityGraph+"\n\n")
	assert.Contains(t, out, "✓ Compiled 1 function(s): 1 block(s), 0 phi(s)")
	assert.Contains(t, out, "Run: ")
}

// phiLine matches a printed phi such as "  i$9: phi(bb1: i$3, bb4: i$8)".
var phiLine = regexp.MustCompile(`(?m)^\s+\S*\$\d+: phi\(bb\d+`)

func TestCompileStage(t *testing.T) {
	file := writeFile(t, t.TempDir(), "loops.cue", loopsProgram)

	ssaOut, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file)
	require.NoError(t, err)
	assert.Len(t, phiLine.FindAllString(ssaOut, -1), 2)
	assert.Contains(t, ssaOut, "✓ Compiled 2 function(s)")

	hirOut, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file, "--stage", "hir")
	require.NoError(t, err)
	assert.Empty(t, phiLine.FindAllString(hirOut, -1), "the graph before conversion has no phis")
	assert.Contains(t, hirOut, "count(n$")
}

func TestCompileInvalidStage(t *testing.T) {
	file := writeFile(t, t.TempDir(), "identity.cue", identityProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file, "--stage", "asm")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `invalid stage "asm"`)
}

func TestCompileJSON(t *testing.T) {
	file := writeFile(t, t.TempDir(), "loops.cue", loopsProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), file)
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 1)

	run := resp.Data.Runs[0]
	assert.Equal(t, run.ID, resp.RunID)
	assert.Equal(t, file, run.Filename)
	assert.Equal(t, pipeline.Version, run.CompilerVersion)
	require.Len(t, run.Functions, 2)

	count := run.Functions[0]
	assert.Equal(t, "count", count.Name)
	assert.Equal(t, 2, count.Phis)
	assert.NotEmpty(t, count.Fingerprint)
	assert.Empty(t, count.Diagnostics)

	identity := run.Functions[1]
	assert.Equal(t, identityGraph, identity.SSA)
	assert.Equal(t, 1, identity.Blocks)
}

func TestCompileFailedFunction(t *testing.T) {
	file := writeFile(t, t.TempDir(), "throw.cue", throwInTryProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ rethrow\n  E206 todo:")
	assert.Contains(t, out, identityGraph, "other functions still compile")
	assert.Contains(t, out, "✗ 1 of 2 function(s) failed to compile")
}

func TestCompileFailedFunctionJSON(t *testing.T) {
	file := writeFile(t, t.TempDir(), "throw.cue", throwInTryProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "1 of 2")

	rethrow := resp.Data.Runs[0].Functions[0]
	require.Len(t, rethrow.Diagnostics, 1)
	assert.Equal(t, "E206", rethrow.Diagnostics[0].Code)
	assert.Equal(t, "todo", rethrow.Diagnostics[0].Category)
	assert.Empty(t, rethrow.Fingerprint)
}

func TestCompileValidationErrorIsAFunctionFailure(t *testing.T) {
	file := writeFile(t, t.TempDir(), "stray.cue", breakOutsideProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ stray")
	assert.Contains(t, out, "E106")
}

func TestCompileUndecodableSource(t *testing.T) {
	file := writeFile(t, t.TempDir(), "bad.cue", undecodableProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Decoding failed")
	assert.Contains(t, out, ErrCodeDecodeFailed)
	assert.Contains(t, out, `unknown statement "bogus"`)
}

func TestCompileUndecodableSourceJSON(t *testing.T) {
	file := writeFile(t, t.TempDir(), "bad.cue", undecodableProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), file)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDecodeFailed, resp.Error.Code)
}

func TestCompileNonExistentPath(t *testing.T) {
	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestCompileDirectoryCompilesEachFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", identityProgram)
	writeFile(t, dir, "nested/b.cue", loopsProgram)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, filepath.Join(dir, "a.cue"), resp.Data.Runs[0].Filename)
	assert.Equal(t, filepath.Join(dir, "nested", "b.cue"), resp.Data.Runs[1].Filename)
	assert.Empty(t, resp.RunID, "no single run to name")
	assert.NotEqual(t, resp.Data.Runs[0].ID, resp.Data.Runs[1].ID)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "identity.cue", identityProgram)
	outputFile := filepath.Join(dir, "runs.json")

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote runs to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Runs, 1)
	assert.Equal(t, "identity", result.Runs[0].Functions[0].Name)
}

func TestCompileMetrics(t *testing.T) {
	file := writeFile(t, t.TempDir(), "loops.cue", loopsProgram)

	out, errOut, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), file, "--metrics")
	require.NoError(t, err)

	assert.Contains(t, errOut, "hirssa_functions_total 2")
	assert.Contains(t, errOut, "hirssa_phis_total 2")
	assert.NotContains(t, out, "hirssa_functions_total", "metrics stay off stdout")
}

func TestCompileRecordsRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "hirssa.db")
	file := writeFile(t, dir, "identity.cue", identityProgram)

	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file, "--db", dbPath)
	require.NoError(t, err)

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, file)
}

func TestCompileVerboseOutput(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "identity.cue", identityProgram)

	out, errOut, err := execute(NewCompileCommand(&RootOptions{Format: "text", Verbose: true}), file)
	require.NoError(t, err)

	assert.Contains(t, errOut, "Found 1 CUE file(s)")
	assert.Contains(t, errOut, "Compiling "+file+" (1 function(s))")
	assert.Contains(t, errOut, "function compiled", "pipeline logs at debug level")
	assert.False(t, strings.Contains(out, "Found 1 CUE file(s)"))
}

func TestCalculateStats(t *testing.T) {
	result := &CompilationResult{Runs: []*pipeline.Run{
		{Functions: []pipeline.FunctionResult{
			{Name: "a", Blocks: 3, Phis: 1},
			{Name: "b", Blocks: 1},
		}},
		{Functions: []pipeline.FunctionResult{
			{Name: "c", Diagnostics: nil, Blocks: 4, Phis: 2},
		}},
	}}

	stats := calculateStats(result)
	assert.Equal(t, CompilationStats{
		FileCount:     2,
		FunctionCount: 3,
		BlockCount:    8,
		PhiCount:      3,
	}, stats)
}
