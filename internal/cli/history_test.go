package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/query"
	"github.com/roach88/deadlint/internal/runid"
)

const demoCrateFixed = `package demo

crate: demo: items: {
	main: fn: body: [{call: "helper"}, {call: "unused"}]
	helper: fn: {}
	unused: fn: {}
	extra: fn: {}
}
`

// recordRuns checks each source in turn into one database and returns it.
// Run IDs are run-1, run-2, ...
func recordRuns(t *testing.T, sources ...string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "deadlint.db")
	ids := make([]string, len(sources))
	for i := range sources {
		ids[i] = "run-" + string(rune('1'+i))
	}
	gen := runid.NewFixedGenerator(ids...)

	for _, src := range sources {
		dir := t.TempDir()
		writeCUE(t, dir, "demo.cue", src)
		_, err := executeCheck(t, &CheckOptions{RunIDs: gen}, dir, "--db", db)
		require.NoError(t, err)
	}
	return db
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryListsRuns(t *testing.T) {
	db := recordRuns(t, demoCrate, demoCrateFixed)

	output, err := executeRoot(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "run-2")
	assert.Contains(t, output, "level=warn")

	output, err = executeRoot(t, "history", "--db", db, "other")
	require.NoError(t, err)
	assert.Contains(t, output, "No runs recorded.")
}

func TestHistoryJSON(t *testing.T) {
	db := recordRuns(t, demoCrate, demoCrateFixed)

	output, err := executeRoot(t, "--format", "json", "history", "--db", db, "demo")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "run-1", resp.Data.Runs[0].ID)
	assert.Equal(t, 1, resp.Data.Runs[0].Findings)
	assert.Equal(t, "run-2", resp.Data.Runs[1].ID)
	assert.Equal(t, 1, resp.Data.Runs[1].Findings)
	assert.Empty(t, resp.Data.Findings)
}

func TestHistoryShowRun(t *testing.T) {
	db := recordRuns(t, demoCrate)

	output, err := executeRoot(t, "history", "--db", db, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, output, "[1] unused: warning: function is never used: `unused`")

	_, err = executeRoot(t, "history", "--db", db, "--run", "run-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no run with ID run-9")
}

func TestHistoryFilters(t *testing.T) {
	db := recordRuns(t, demoCrate)

	output, err := executeRoot(t, "history", "--db", db, "--run", "run-1", "--path", "un", "--severity", "warning")
	require.NoError(t, err)
	assert.Contains(t, output, "  1 finding(s)")
	assert.Contains(t, output, "unused: warning")

	output, err = executeRoot(t, "history", "--db", db, "--run", "run-1", "--descr", "struct,enum")
	require.NoError(t, err)
	assert.Contains(t, output, "  0 finding(s)")
	assert.NotContains(t, output, "unused: warning")

	output, err = executeRoot(t, "history", "--db", db, "--path", "Unused")
	require.NoError(t, err)
	assert.Contains(t, output, "  0 finding(s)")
}

func TestHistoryOptionsFilter(t *testing.T) {
	assert.Nil(t, (&HistoryOptions{}).filter())
	assert.Equal(t, query.Equals{Field: "descr", Value: "field"}, (&HistoryOptions{Descr: []string{"field"}}).filter())

	opts := &HistoryOptions{Descr: []string{"field", "variant"}, Path: "Point::"}
	assert.Equal(t, query.And{Predicates: []query.Predicate{
		query.In{Field: "descr", Values: []string{"field", "variant"}},
		query.Prefix{Field: "path", Value: "Point::"},
	}}, opts.filter())
}

func TestHistoryMissingDatabase(t *testing.T) {
	_, err := executeRoot(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestDiffNewFinding(t *testing.T) {
	db := recordRuns(t, demoCrate, demoCrateFixed)

	output, err := executeRoot(t, "diff", "--db", db, "run-1", "run-2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "+ extra: function is never used: `extra`")
	assert.Contains(t, output, "- unused: function is never used: `unused`")
	assert.Contains(t, output, "1 added, 1 removed, 0 unchanged")
}

func TestDiffLatestOfCrate(t *testing.T) {
	db := recordRuns(t, demoCrate, demoCrate, demoCrateFixed)

	output, err := executeRoot(t, "--format", "json", "diff", "--db", db, "--crate", "demo")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		RunID  string     `json:"run_id"`
		Data   DiffResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "run-3", resp.RunID)
	assert.Equal(t, "run-2", resp.Data.From)
	assert.Equal(t, "run-3", resp.Data.To)
	require.Len(t, resp.Data.Added, 1)
	assert.Equal(t, "extra", resp.Data.Added[0].Path)
	assert.False(t, resp.Data.Clean)
	assert.Equal(t, ErrCodeNewFindings, resp.Error.Code)
}

func TestDiffUnchanged(t *testing.T) {
	db := recordRuns(t, demoCrate, demoCrate)

	output, err := executeRoot(t, "diff", "--db", db, "--crate", "demo")
	require.NoError(t, err)
	assert.Contains(t, output, "0 added, 0 removed, 1 unchanged")
}

func TestDiffArgumentErrors(t *testing.T) {
	db := recordRuns(t, demoCrate)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"one run", []string{"run-1"}, "needs two run IDs"},
		{"no crate", nil, "needs two run IDs or --crate"},
		{"too few runs", []string{"--crate", "demo"}, "has 1 run(s)"},
		{"unknown run", []string{"run-1", "run-9"}, "no such run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"diff", "--db", db}, tt.args...)
			_, err := executeRoot(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
