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

	"github.com/roach88/typekit/internal/compiler"
	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// LoadResult contains a catalog compiled from a directory.
type LoadResult struct {
	Catalog   *ir.Catalog
	CUEValue  cue.Value // raw CUE value for additional processing
	FileCount int
}

// LoadError represents an error that occurred while loading a catalog.
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

// LoadCatalog loads the CUE package in dir and compiles it to a catalog.
// Every failure is a *LoadError.
func LoadCatalog(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	cat, err := compiler.CompileCatalog(value)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Catalog:   cat,
		CUEValue:  value,
		FileCount: len(cueFiles),
	}, nil
}

// LoadValidCatalog is LoadCatalog followed by validation against the
// builtin library. Validation failures come back as the full list.
func LoadValidCatalog(dir string) (*LoadResult, []compiler.ValidationError, error) {
	res, err := LoadCatalog(dir)
	if err != nil {
		return nil, nil, err
	}
	if errs := compiler.Validate(res.Catalog, engine.Builtins().Names()); len(errs) > 0 {
		return res, errs, nil
	}
	return res, nil, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants shared by all CLI commands. Catalog validation
// codes (E101-E109) come from the compiler package unchanged.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Catalog compile errors
	ErrCodeEmptyCatalog = "E010" // No mixin or type declarations
	ErrCodeInvalidValue = "E011" // Float, null or non-concrete value
	ErrCodeInvalidHook  = "E012" // Malformed hooks list
	ErrCodeInvalidRef   = "E013" // Malformed extends or includes
	ErrCodeInvalidShape = "E014" // statics/options/fields/methods not a struct

	// Runtime errors
	ErrCodeUnknownType = "E201" // Type not in catalog
	ErrCodeBadArgs     = "E202" // --args is not valid JSON
	ErrCodeConstruct   = "E203" // Construction or hook failure
	ErrCodeDatabase    = "E204" // Store open/read/write failure
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "catalog":
		return ErrCodeEmptyCatalog
	case "value":
		return ErrCodeInvalidValue
	case "hooks":
		return ErrCodeInvalidHook
	case "extends", "includes":
		return ErrCodeInvalidRef
	case "statics", "options", "fields", "methods":
		return ErrCodeInvalidShape
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}

// loadErrorParts splits an error returned by LoadCatalog into code and message.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
