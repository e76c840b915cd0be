package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
	"github.com/roach88/typekit/internal/store"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	Args     string // JSON: an array spreads into constructor args, anything else is one arg
	Database string // optional SQLite log
}

// NewResult describes a constructed instance.
type NewResult struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Seq         int64            `json:"seq"`
	Args        ir.IRArray       `json:"args"`
	Options     ir.IRObject      `json:"options"`
	Fields      ir.IRObject      `json:"fields"`
	HookRuns    []engine.HookRun `json:"hook_runs"`
	CatalogHash string           `json:"catalog_hash"`
	Recorded    bool             `json:"recorded"`
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new <catalog-dir> <type>",
		Short: "Construct an instance of a catalog type",
		Long: `Build the catalog, construct one instance of a type and run its init
hooks. With --db the catalog and the instance, including every hook run,
are appended to the SQLite log; the clock resumes after the log's last seq
so replay can reproduce the record.

Exit codes:
  0 - Instance constructed
  1 - Construction or an init hook failed
  2 - Command error (bad catalog, unknown type, bad --args, database error)

Examples:
  typekit new ./catalog Circle
  typekit new ./catalog Circle --args '{"radius": 5}'
  typekit new ./catalog Circle --args '[1, 2]' --db typekit.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "", "constructor arguments as JSON")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the instance to this SQLite log")

	return cmd
}

func runNew(opts *NewOptions, dir, typeName string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	args, err := parseArgs(opts.Args)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadArgs, fmt.Sprintf("invalid --args: %v", err), nil)
	}

	var (
		st    *store.Store
		clock = engine.NewClock()
	)
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer st.Close()

		last, err := st.LastSeq(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		clock = engine.NewClockAt(last)
		formatter.VerboseLog("Resuming clock after seq %d", last)
	}

	reg, cat, err := buildCatalog(formatter, opts.RootOptions, dir, cmd, engine.WithClock(clock))
	if err != nil {
		return err
	}
	t, err := lookupType(reg, typeName)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeUnknownType, err.Error(), nil)
	}

	hash, err := ir.CatalogHash(*cat)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing catalog: %v", err), nil)
	}
	if st != nil {
		if _, err := st.WriteCatalog(ctx, *cat, clock.Next()); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
	}

	inst, err := t.New(args...)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeConstruct, err.Error(), runtimeDetails(err))
	}

	result := NewResult{
		ID:          inst.ID(),
		Type:        t.String(),
		Seq:         inst.Seq(),
		Args:        args,
		Options:     inst.Options(),
		Fields:      inst.Fields(),
		HookRuns:    inst.HookRuns(),
		CatalogHash: hash,
	}
	if st != nil {
		if err := st.RecordInstance(ctx, hash, args, inst); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		result.Recorded = true
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputNewText(formatter, result, opts.Database)
	return nil
}

// parseArgs decodes --args. Empty means no arguments.
func parseArgs(raw string) (ir.IRArray, error) {
	if strings.TrimSpace(raw) == "" {
		return ir.IRArray{}, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(raw))
	if err != nil {
		return nil, err
	}
	if arr, ok := v.(ir.IRArray); ok {
		return arr, nil
	}
	return ir.IRArray{v}, nil
}

// runtimeDetails exposes the structured parts of an engine error.
func runtimeDetails(err error) map[string]string {
	var re *engine.RuntimeError
	if !errors.As(err, &re) {
		return nil
	}
	details := map[string]string{"code": string(re.Code)}
	if re.Type != "" {
		details["type"] = re.Type
	}
	if re.Hook != "" {
		details["hook"] = re.Hook
	}
	return details
}

func outputNewText(formatter *OutputFormatter, r NewResult, db string) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s %s (seq %d)\n", r.Type, r.ID, r.Seq)
	fmt.Fprintln(w, "Options:")
	printObject(formatter, r.Options)
	fmt.Fprintln(w, "Fields:")
	printObject(formatter, r.Fields)
	fmt.Fprintln(w, "Hooks:")
	if len(r.HookRuns) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, run := range r.HookRuns {
		fmt.Fprintf(w, "  %d. %s @%d\n", run.Ordinal+1, run.Label, run.Seq)
	}
	if r.Recorded {
		fmt.Fprintf(w, "\nRecorded in %s (catalog %s)\n", db, r.CatalogHash)
	}
}
