package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled catalog plus its content hash.
type CompilationResult struct {
	Hash    string     `json:"hash"`
	Catalog ir.Catalog `json:"catalog"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a CUE catalog to canonical IR",
		Long: `Compile the CUE package in a directory to a type catalog.

Types are ordered so every base precedes the types extending it. The
catalog hash identifies the compiled content and is what the instance log
records.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	res, valErrs, err := LoadValidCatalog(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)
	if len(valErrs) > 0 {
		return outputValidationErrors(formatter, valErrs)
	}

	hash, err := ir.CatalogHash(*res.Catalog)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing catalog: %v", err), nil)
	}
	result := &CompilationResult{Hash: hash, Catalog: *res.Catalog}

	if opts.Output != "" {
		if err := writeCatalogToFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d mixin(s), %d type(s)\n\n", len(result.Catalog.Mixins), len(result.Catalog.Types))

	if len(result.Catalog.Mixins) > 0 {
		fmt.Fprintln(w, "Mixins:")
		for _, m := range result.Catalog.Mixins {
			fmt.Fprintf(w, "  %s: %d field(s), %d method(s)\n", m.Name, len(m.Fields), len(m.Methods))
		}
		fmt.Fprintln(w)
	}

	if len(result.Catalog.Types) > 0 {
		fmt.Fprintln(w, "Types:")
		for _, t := range result.Catalog.Types {
			base := t.Extends
			if base == "" {
				base = engine.RootTypeName
			}
			fmt.Fprintf(w, "  %s → %s: %d hook(s)\n", t.Name, base, len(t.Hooks))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote catalog to %s\n", outputFile)
	}
	return nil
}

// outputLoadError reports a LoadCatalog failure. Positioned errors print
// their location first in text mode.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) && le.Pos.IsValid() && !formatter.IsJSON() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column())
	}
	code, message := loadErrorParts(err)
	return formatter.fail(ExitCommandError, code, message, nil)
}

// writeCatalogToFile writes the result as indented JSON. Canonical JSON
// without indentation is used only for hashing.
func writeCatalogToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
