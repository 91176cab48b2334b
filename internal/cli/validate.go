package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/deadlint/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Crates int                        `json:"crates"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Check crates for structural errors",
		Long: `Compile every crate and check the structural rules the analysis relies on.

Unlike compile, validate keeps going after a crate fails and reports every
problem it finds, each with an error code.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadCrates(path, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	validationErrors := validateLoaded(loadResult, loadErrors, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(loadResult.Crates))
}

// validateLoaded runs compiler.Validate on each compiled crate and turns
// load failures into validation errors.
func validateLoaded(result *LoadResult, loadErrors []error, formatter *OutputFormatter) []compiler.ValidationError {
	var all []compiler.ValidationError
	for _, err := range loadErrors {
		all = append(all, loadToValidationError(err))
	}
	for _, c := range result.Crates {
		formatter.VerboseLog("Validating crate: %s", c.Name)
		for _, e := range compiler.Validate(c) {
			e.Field = c.Name + "::" + e.Field
			all = append(all, e)
		}
	}
	return all
}

// loadToValidationError converts a compile or load error, keeping its line.
func loadToValidationError(err error) compiler.ValidationError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return compiler.ValidationError{
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Code:    MapFieldToErrorCode(compileErr.Field),
			Line:    lineOf(compileErr.Pos),
		}
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    lineOf(loadErr.Pos),
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// lineOf extracts the line number from a position, or 0.
func lineOf(pos interface {
	IsValid() bool
	Line() int
}) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, crates int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Crates: crates})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d crate(s) valid\n", crates)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidatePath validates every crate under path without printing anything.
func ValidatePath(path string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadCrates(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return validateLoaded(loadResult, loadErrors, silent), nil
}
