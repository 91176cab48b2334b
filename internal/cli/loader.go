package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/deadlint/internal/compiler"
	"github.com/roach88/deadlint/internal/ir"
)

// LoadMode controls how errors are handled during crate loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every crate and collects all errors.
	LoadModeCollectAll
)

// LoadResult contains the crates loaded from a file or directory.
type LoadResult struct {
	Crates    []*ir.Crate
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
	Dir       string    // Directory the crates were loaded from
}

// LoadError represents an error that occurred during crate loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCrates loads a CUE package directory or a single .cue file and
// compiles every crate under its top-level `crate` field.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadCrates(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
	}

	dir, args := path, []string{"."}
	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}}
		}
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(files),
		Dir:       dir,
	}

	cratesVal := value.LookupPath(cue.ParsePath("crate"))
	if !cratesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoCrate, Message: "no crate defined"}}
	}
	iter, err := cratesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating crates: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		c, compileErr := compiler.CompileCrate(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "crate."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Crates = append(result.Crates, c)
	}

	if len(result.Crates) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoCrate, Message: "no crate defined"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// SelectCrate returns the crate with the given name, or every crate when
// the name is empty.
func SelectCrate(crates []*ir.Crate, name string) ([]*ir.Crate, error) {
	if name == "" {
		return crates, nil
	}
	for _, c := range crates {
		if c.Name == name {
			return []*ir.Crate{c}, nil
		}
	}
	return nil, &LoadError{Code: ErrCodeNoCrate, Message: fmt.Sprintf("no crate named %q", name)}
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoCrate     = "E008" // No crate (or no crate of that name)
	ErrCodeConfig      = "E009" // Bad config file or settings
	ErrCodeDatabase    = "E010" // Store error
	ErrCodeTestFailed  = "E011" // Scenario failures
	ErrCodeNewFindings = "E012" // Diff found new findings

	// Crate compile errors
	ErrCodeDeclaration = "E020" // Malformed declaration
	ErrCodeResolve     = "E021" // Unresolved path, type or trait
	ErrCodeBody        = "E022" // Malformed expression or pattern
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "crate", "items", "entry", "pub", "attrs", "fields", "generics", "impl", "ir":
		return ErrCodeDeclaration
	case "path", "type", "trait", "bound", "bounds", "self":
		return ErrCodeResolve
	case "expr", "pat", "match", "arms", "if_let", "while", "cond", "cast",
		"lit", "range", "repeat", "struct", "tuple_struct", "field":
		return ErrCodeBody
	default:
		return ErrCodeGeneric
	}
}
