package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the instance log and verify determinism",
		Long: `Rebuild every recorded instance from its stored catalog and compare
the result with the record: seq, options, fields and the hook runs.

Stored catalogs are re-hashed first; a catalog whose content no longer
matches its hash is reported and its instances are skipped.

Exit codes:
  0 - Every instance replayed identically
  1 - At least one mismatch
  2 - Command error (database not found, etc.)

Examples:
  typekit replay --db typekit.db
  typekit replay --db typekit.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.DB, "path to SQLite database")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	logger := opts.Logger(cmd.ErrOrStderr())
	result, err := st.Replay(cmd.Context(), engine.Builtins(), engine.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

func outputReplayJSON(cmd *cobra.Command, result *store.ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result *store.ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Catalogs == 0 {
		fmt.Fprintln(w, "No catalogs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d catalog(s), %d instance(s)\n\n", result.Catalogs, result.Instances)

	for _, m := range result.Mismatches {
		if m.InstanceID == "" {
			fmt.Fprintf(w, "✗ %s\n", m.Field)
		} else {
			fmt.Fprintf(w, "✗ %s %s: %s\n", m.TypeName, m.InstanceID, m.Field)
		}
		if verbose || m.Field == "error" {
			fmt.Fprintf(w, "  expected: %s\n  actual:   %s\n", m.Expected, m.Actual)
		}
	}
	if len(result.Mismatches) > 0 {
		fmt.Fprintln(w)
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ All instances verified deterministic")
		return nil
	}

	fmt.Fprintf(w, "✗ Determinism verification failed (%d mismatch(es))\n", len(result.Mismatches))
	return NewExitError(ExitFailure, "determinism verification failed")
}
