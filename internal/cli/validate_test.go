package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deadlint/internal/compiler"
)

const twoBrokenCrates = `package demo

crate: {
	ok: items: main: fn: {}
	unresolved: items: main: fn: body: [{call: "nope"}]
	duplicate: items: {
		strlen: fn: {}
		ffi: extern: items: strlen: fn: {}
	}
}
`

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidCrate(t *testing.T) {
	output, err := executeValidate(t, "text", crateDir(t))
	require.NoError(t, err)
	assert.Contains(t, output, "✓ 1 crate(s) valid")
}

func TestValidateValidCrateJSON(t *testing.T) {
	output, err := executeValidate(t, "json", crateDir(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Crates)
}

func TestValidateTestdata(t *testing.T) {
	dir := filepath.Join("..", "..", "testdata", "crates")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("testdata/crates not found")
	}

	output, err := executeValidate(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ 4 crate(s) valid")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "crates.cue", twoBrokenCrates)

	output, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "cannot find value `nope`")
	assert.Contains(t, output, "defined multiple times")
}

func TestValidateCollectsAllErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "crates.cue", twoBrokenCrates)

	output, err := executeValidate(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)

	codes := []string{resp.Data.Errors[0].Code, resp.Data.Errors[1].Code}
	assert.ElementsMatch(t, []string{ErrCodeResolve, ErrCodeDeclaration}, codes)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func TestValidateNonExistentPath(t *testing.T) {
	output, err := executeValidate(t, "text", "/nonexistent/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	output, err := executeValidate(t, "json", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, ErrCodeNoFiles, resp.Error.Code)
}

func TestValidateNoCrate(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "other.cue", "package demo\n\nother: 1\n")

	output, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "E008: load: no crate defined")
}

func TestValidatePath(t *testing.T) {
	errs, err := ValidatePath(crateDir(t))
	require.NoError(t, err)
	assert.Empty(t, errs)

	dir := t.TempDir()
	writeCUE(t, dir, "crates.cue", twoBrokenCrates)
	errs, err = ValidatePath(dir)
	require.NoError(t, err)
	assert.Len(t, errs, 2)

	_, err = ValidatePath("/nonexistent/path")
	require.Error(t, err)
}

func TestLoadToValidationError(t *testing.T) {
	e := loadToValidationError(&compiler.CompileError{Field: "match", Message: "match needs arms"})
	assert.Equal(t, ErrCodeBody, e.Code)
	assert.Equal(t, "match", e.Field)
	assert.Equal(t, 0, e.Line)

	e = loadToValidationError(&LoadError{Code: ErrCodeNoCrate, Message: "no crate defined"})
	assert.Equal(t, "load", e.Field)
	assert.Equal(t, ErrCodeNoCrate, e.Code)

	e = loadToValidationError(os.ErrClosed)
	assert.Equal(t, ErrCodeGeneric, e.Code)
}
