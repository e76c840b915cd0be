package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Mixins int                        `json:"mixins"`
	Types  int                        `json:"types"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a catalog without writing output",
		Long: `Validate a CUE catalog: syntax, value shapes, references between
types and mixins, inheritance cycles, reserved static names and builtin
method bindings. All problems are reported, not just the first.

Exit codes:
  0 - Catalog is valid
  1 - Catalog has errors
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	res, errs, err := ValidateCatalogDir(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)
	for _, t := range res.Catalog.Types {
		formatter.VerboseLog("Validated type: %s", t.Name)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{
			Valid:  true,
			Mixins: len(res.Catalog.Mixins),
			Types:  len(res.Catalog.Types),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Catalog valid: %d mixin(s), %d type(s)\n",
		len(res.Catalog.Mixins), len(res.Catalog.Types))
	return nil
}

// ValidateCatalogDir loads and validates the catalog in dir. A compile
// failure inside the catalog is returned as a validation error; only
// failures to reach the catalog at all are returned as err.
func ValidateCatalogDir(dir string) (*LoadResult, []compiler.ValidationError, error) {
	res, errs, err := LoadValidCatalog(dir)
	if err == nil {
		return res, errs, nil
	}

	var le *LoadError
	if errors.As(err, &le) && isCatalogError(le.Code) {
		field := "catalog"
		if le.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d:%d", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column())
		}
		return nil, []compiler.ValidationError{{Field: field, Message: le.Message, Code: le.Code}}, nil
	}
	return nil, nil, err
}

// isCatalogError reports whether a load error code describes the catalog
// content rather than the directory holding it.
func isCatalogError(code string) bool {
	switch code {
	case ErrCodeLoadFailed, ErrCodeBuildFailed, ErrCodeEmptyCatalog, ErrCodeInvalidValue,
		ErrCodeInvalidHook, ErrCodeInvalidRef, ErrCodeInvalidShape:
		return true
	}
	return false
}

// outputValidationErrors outputs every validation error and fails with
// ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", err.Field, err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
