package cli

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/ir"
	"github.com/roach88/typekit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Type     string // optional - only instances of this type
}

// Timeline event kinds.
const (
	TraceCatalog  = "catalog"
	TraceInstance = "instance"
	TraceHook     = "hook"
)

// TraceEvent is one entry of the seq-ordered timeline.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Kind    string      `json:"kind"`
	ID      string      `json:"id"` // catalog hash or instance ID
	Type    string      `json:"type,omitempty"`
	Hook    string      `json:"hook,omitempty"`
	Ordinal int         `json:"ordinal,omitempty"`
	Args    ir.IRArray  `json:"args,omitempty"`
	Options ir.IRObject `json:"options,omitempty"`
	Fields  ir.IRObject `json:"fields,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Instance string       `json:"instance,omitempty"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Catalogs  int `json:"catalogs"`
	Instances int `json:"instances"`
	HookRuns  int `json:"hook_runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [instance-id]",
		Short: "Show the recorded timeline",
		Long: `Show what the instance log recorded, ordered by seq.

Without an instance ID the whole log is shown: every stored catalog, every
instance and each init hook it ran. With an ID only that instance and its
hooks are shown.

Examples:
  typekit trace --db typekit.db
  typekit trace --db typekit.db --type Circle
  typekit trace 0192f7c4-... --db typekit.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runTrace(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.DB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only instances of this type")

	return cmd
}

func runTrace(opts *TraceOptions, instanceID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := TraceResult{Instance: instanceID, Timeline: []TraceEvent{}}

	var instances []store.InstanceRecord
	if instanceID != "" {
		rec, err := st.ReadInstance(ctx, instanceID)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("instance %s not found", instanceID), nil)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read instance", err)
		}
		instances = []store.InstanceRecord{rec}
	} else {
		catalogs, err := st.ReadCatalogs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read catalogs", err)
		}
		for _, c := range catalogs {
			result.Timeline = append(result.Timeline, TraceEvent{Seq: c.Seq, Kind: TraceCatalog, ID: c.Hash})
		}
		result.Stats.Catalogs = len(catalogs)

		instances, err = st.ReadInstances(ctx, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read instances", err)
		}
	}

	for _, rec := range instances {
		if opts.Type != "" && rec.TypeName != opts.Type {
			continue
		}
		result.Stats.Instances++
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     rec.Seq,
			Kind:    TraceInstance,
			ID:      rec.ID,
			Type:    rec.TypeName,
			Args:    rec.Args,
			Options: rec.Options,
			Fields:  rec.Fields,
		})
		for _, run := range rec.HookRuns {
			result.Stats.HookRuns++
			result.Timeline = append(result.Timeline, TraceEvent{
				Seq:     run.Seq,
				Kind:    TraceHook,
				ID:      rec.ID,
				Type:    rec.TypeName,
				Hook:    run.Label,
				Ordinal: run.Ordinal,
			})
		}
	}

	slices.SortStableFunc(result.Timeline, func(a, b TraceEvent) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

func outputTraceText(formatter *OutputFormatter, r TraceResult) {
	w := formatter.Writer
	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	if r.Instance != "" {
		fmt.Fprintf(w, "Trace: %s\n", r.Instance)
	} else {
		fmt.Fprintln(w, "Trace: all records")
	}
	fmt.Fprintln(w, strings.Repeat("─", 40))

	for _, ev := range r.Timeline {
		switch ev.Kind {
		case TraceCatalog:
			fmt.Fprintf(w, "[%4d] catalog  %s\n", ev.Seq, ev.ID)
		case TraceInstance:
			fmt.Fprintf(w, "[%4d] new      %s %s args=%s\n", ev.Seq, ev.Type, ev.ID, renderValue(ev.Args))
			if formatter.Verbose {
				fmt.Fprintf(w, "         options=%s fields=%s\n", renderValue(ev.Options), renderValue(ev.Fields))
			}
		case TraceHook:
			fmt.Fprintf(w, "[%4d] hook     %s #%d %s\n", ev.Seq, ev.ID, ev.Ordinal, ev.Hook)
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", 40))
	fmt.Fprintf(w, "%d catalog(s), %d instance(s), %d hook run(s)\n",
		r.Stats.Catalogs, r.Stats.Instances, r.Stats.HookRuns)
}
