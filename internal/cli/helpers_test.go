package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const identityProgram = `
function: identity: {
	params: ["a"]
	body: [{"return": {value: "a"}}]
}
`

const identityGraph = `identity(a$4): $3
bb0 (block):
  [1] $5 = LoadLocal a$4
  [2] Return Explicit $5`

const loopsProgram = `
function: count: {
	params: ["n"]
	body: [
		{"let": {name: "i", value: 0}},
		{while: {test: {binary: {op: "<", left: "i", right: "n"}}, body: [
			{assign: {name: "i", value: {binary: {op: "+", left: "i", right: 1}}}},
		]}},
		{"return": {value: "i"}},
	]
}

function: identity: {
	params: ["a"]
	body: [{"return": {value: "a"}}]
}
`

const throwInTryProgram = `
function: rethrow: {
	body: [
		{"try": {
			block: [{"throw": {value: "oops"}}]
			"catch": {param: "e", body: []}
		}},
	]
}

function: identity: {
	params: ["a"]
	body: [{"return": {value: "a"}}]
}
`

const breakOutsideProgram = `
function: stray: {
	body: [{"break": {}}]
}
`

const undecodableProgram = `
function: f: {
	body: [{bogus: {}}]
}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// compileInto records a compilation of src in the database at dbPath.
func compileInto(t *testing.T, dbPath, src string) {
	t.Helper()
	file := writeFile(t, t.TempDir(), "prog.cue", src)
	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), file, "--db", dbPath)
	if err != nil {
		require.Equal(t, ExitFailure, GetExitCode(err), "compile failed: %v", err)
	}
}
