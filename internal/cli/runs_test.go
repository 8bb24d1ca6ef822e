package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hirssa/internal/pipeline"
	"github.com/roach88/hirssa/internal/store"
)

func TestRunsMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRunsEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestRunsText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	compileInto(t, dbPath, loopsProgram)
	compileInto(t, dbPath, throwInTryProgram)

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"SEQ", "RUN", "FILE", "FUNCTIONS", "FAILED", "VERSION"}, strings.Fields(lines[0]))

	first := strings.Fields(lines[1])
	require.Len(t, first, 6)
	assert.Equal(t, "2", first[3])
	assert.Equal(t, "0", first[4])
	assert.Equal(t, pipeline.Version, first[5])

	second := strings.Fields(lines[2])
	require.Len(t, second, 6)
	assert.Equal(t, "1", second[4], "rethrow failed")
}

func TestRunsJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	compileInto(t, dbPath, identityProgram)
	compileInto(t, dbPath, loopsProgram)

	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []store.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Less(t, resp.Data[0].Seq, resp.Data[1].Seq)
	assert.Equal(t, 1, resp.Data[0].Functions)
	assert.Equal(t, 2, resp.Data[1].Functions)
}

func TestRunsRejectsArguments(t *testing.T) {
	_, _, err := execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "x.db"), "extra")
	require.Error(t, err)
}

func TestRunsFingerprint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	compileInto(t, dbPath, identityProgram)
	compileInto(t, dbPath, loopsProgram)
	compileInto(t, dbPath, throwInTryProgram)
	ids := listRunIDs(t, dbPath)
	require.Len(t, ids, 3)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	first, err := st.ReadRun(context.Background(), ids[0])
	require.NoError(t, err)
	require.NoError(t, st.Close())
	fingerprint := first.Functions[0].Fingerprint
	require.NotEmpty(t, fingerprint)

	// Every program defines the same identity function.
	out, _, err := execute(NewRunsCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--fingerprint", fingerprint)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   []store.FunctionRef `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
	for i, ref := range resp.Data {
		assert.Equal(t, ids[i], ref.RunID)
		assert.Equal(t, "identity", ref.Name)
	}

	out, _, err = execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--fingerprint", fingerprint)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"SEQ", "RUN", "FILE", "FUNCTION"}, strings.Fields(lines[0]))

	out, _, err = execute(NewRunsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--fingerprint", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No functions with fingerprint nope.")
}
