package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/deadlint/internal/compiler"
	"github.com/roach88/deadlint/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CrateSummary describes one compiled crate.
type CrateSummary struct {
	Name  string         `json:"name"`
	Hash  string         `json:"hash"`
	Entry string         `json:"entry,omitempty"`
	Decls int            `json:"decls"`
	Kinds map[string]int `json:"kinds"`
}

// CompilationResult holds the summaries of the compiled crates.
type CompilationResult struct {
	Crates []CrateSummary `json:"crates"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile CUE crates and summarize them",
		Long: `Compile the crates of a CUE file or package directory.

Every crate under the top-level crate field is resolved and type checked.
The summary lists each crate's fingerprint, entry point and declarations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the summary as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadCrates(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputCompileError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)
	for _, c := range loadResult.Crates {
		formatter.VerboseLog("Compiled crate: %s (%d nodes)", c.Name, c.Len())
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Crates: make([]CrateSummary, 0, len(loadResult.Crates))}
	for _, c := range loadResult.Crates {
		summary, err := summarize(c)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		result.Crates = append(result.Crates, summary)
	}

	if opts.Output != "" {
		if err := writeSummaryToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarize counts the declarations of a crate by kind.
func summarize(c *ir.Crate) (CrateSummary, error) {
	hash, err := ir.CrateHash(c)
	if err != nil {
		return CrateSummary{}, err
	}
	s := CrateSummary{Name: c.Name, Hash: hash, Kinds: map[string]int{}}
	if c.Entry.IsValid() {
		s.Entry = c.DefPath(c.Entry)
	}
	for _, id := range c.IDs() {
		n, _ := c.Node(id)
		if _, ok := n.(ir.Decl); !ok || id == c.Root {
			continue
		}
		s.Decls++
		s.Kinds[c.Descr(id)]++
	}
	return s, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d crate(s)\n\n", len(result.Crates))
	for _, s := range result.Crates {
		entry := s.Entry
		if entry == "" {
			entry = "(library)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d declaration(s), entry %s\n", s.Name, s.Decls, entry)
		fmt.Fprintf(formatter.Writer, "    hash %s\n", s.Hash)
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote summary to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		if pos := errorPos(err); pos != "" {
			fmt.Fprintln(formatter.Writer, pos)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// errorPos renders the source position of a compile or load error.
func errorPos(err error) string {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d", compileErr.Pos.Filename(), compileErr.Pos.Line(), compileErr.Pos.Column())
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	return ""
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSummaryToFile writes the compilation result as indented JSON.
func writeSummaryToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
