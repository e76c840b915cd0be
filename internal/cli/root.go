package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string     // "json" | "text"
	DB       string     // default SQLite log for trace and replay
	LogLevel slog.Level // engine log level without --verbose
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Logger returns a text logger on w. --verbose lowers the level to debug.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := o.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCommand creates the root command for the typekit CLI.
// Defaults for --format, --db and the log level come from the
// TYPEKIT_* environment.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cfg, cfgErr := config.Load()
	if cfgErr == nil {
		opts.Format = cfg.Format
		opts.DB = cfg.DB
		opts.LogLevel, cfgErr = cfg.Level()
	}

	cmd := &cobra.Command{
		Use:   "typekit",
		Short: "typekit - type composition engine",
		Long: `Compile, inspect and exercise declarative type catalogs.

A catalog declares types that extend one another, mix in shared behavior,
merge default options and register init hooks. typekit compiles catalogs
from CUE, constructs instances, records them in a SQLite log and replays
that log to prove construction is deterministic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	if opts.Format == "" {
		opts.Format = "text"
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", opts.Format, "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
