package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"
	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/ast"
	"github.com/roach88/hirssa/internal/compiler"
)

// LoadMode controls how errors are handled during source loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first file that fails to decode.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll decodes every file and collects all errors.
	LoadModeCollectAll
)

// SourceFile is one decoded CUE file.
type SourceFile struct {
	Path      string
	Source    []byte
	Functions []*ast.Function
}

// LoadResult contains the files decoded from a path.
type LoadResult struct {
	Files     []SourceFile
	FileCount int // Number of CUE files found
}

// FunctionCount returns the number of functions decoded across all files.
func (r *LoadResult) FunctionCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Functions)
	}
	return n
}

// LoadError represents an error that occurred during source loading.
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

// LoadSources decodes the function definitions of a single .cue file, or of
// every .cue file under a directory.
// If mode is LoadModeFailFast, returns after the first file with errors.
// If mode is LoadModeCollectAll, collects errors from all files.
func LoadSources(path string, mode LoadMode) (*LoadResult, []error) {
	files, loadErr := ResolveCUEFiles(path)
	if loadErr != nil {
		return nil, []error{loadErr}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		fns, err := compiler.CompileSource(file, src)
		if err != nil {
			for _, e := range multierr.Errors(err) {
				errs = append(errs, convertCompileError(e, file))
			}
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
		result.Files = append(result.Files, SourceFile{Path: file, Source: src, Functions: fns})
	}

	if result.FunctionCount() == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("no functions found in %s", path)})
	}
	return result, errs
}

// ResolveCUEFiles returns path itself when it names a file, or every .cue
// file under it when it names a directory.
func ResolveCUEFiles(path string) ([]string, *LoadError) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}
	return files, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
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
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeDecodeFailed,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}

// Error code constants for command-level failures. Compiler diagnostics
// carry their own E1xx-E3xx codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // Source file could not be read
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE evaluation failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeDecodeFailed = "E008" // Function definition could not be decoded
	ErrCodeStoreFailed  = "E009" // Run store could not be opened or written
	ErrCodeRunNotFound  = "E010" // No stored run with that id
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeDecodeFailed
	}
}
