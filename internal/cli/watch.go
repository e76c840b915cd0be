package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/compiler"
	"github.com/roach88/typekit/internal/ir"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// CheckResult is the outcome of one watch rebuild.
type CheckResult struct {
	Valid  bool                       `json:"valid"`
	Hash   string                     `json:"hash,omitempty"`
	Types  int                        `json:"types"`
	Mixins int                        `json:"mixins"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <catalog-dir>",
		Short: "Revalidate a catalog whenever its files change",
		Long: `Compile and validate a catalog, then keep doing so each time a .cue
file in the directory is written, created, removed or renamed. Bursts of
events within --debounce collapse into one rebuild. Runs until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before rebuilding")

	return cmd
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("catalog directory not found: %s", dir), nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch directory", err)
	}

	rebuild := func() { reportCheck(formatter, checkCatalog(dir)) }

	logger.Info("watching catalog", "dir", dir, "debounce", opts.Debounce)
	rebuild()
	err = watchLoop(ctx, watcher.Events, watcher.Errors, opts.Debounce, logger, rebuild)
	logger.Info("watch stopped")
	return err
}

// watchLoop calls rebuild after relevant file events until ctx is done or
// the event channel closes. A positive debounce waits for that long without
// further events first.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, debounce time.Duration, logger *slog.Logger, rebuild func()) error {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !isCatalogEvent(ev) {
				continue
			}
			logger.Debug("catalog changed", "file", ev.Name, "op", ev.Op.String())
			if debounce <= 0 {
				rebuild()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			rebuild()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func isCatalogEvent(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".cue" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// checkCatalog compiles and validates dir once.
func checkCatalog(dir string) CheckResult {
	res, errs, err := ValidateCatalogDir(dir)
	if err != nil {
		code, msg := loadErrorParts(err)
		return CheckResult{Errors: []compiler.ValidationError{{Field: dir, Message: msg, Code: code}}}
	}
	if len(errs) > 0 {
		return CheckResult{Errors: errs}
	}

	result := CheckResult{
		Valid:  true,
		Types:  len(res.Catalog.Types),
		Mixins: len(res.Catalog.Mixins),
	}
	hash, err := ir.CatalogHash(*res.Catalog)
	if err != nil {
		return CheckResult{Errors: []compiler.ValidationError{{Field: "catalog", Message: err.Error(), Code: ErrCodeGeneric}}}
	}
	result.Hash = hash
	return result
}

func reportCheck(formatter *OutputFormatter, r CheckResult) {
	if formatter.IsJSON() {
		if r.Valid {
			_ = formatter.Success(r)
			return
		}
		_ = formatter.Error(r.Errors[0].Code, r.Errors[0].Message, r)
		return
	}

	if r.Valid {
		fmt.Fprintf(formatter.Writer, "✓ Catalog valid: %d mixin(s), %d type(s) [%s]\n", r.Mixins, r.Types, r.Hash)
		return
	}
	fmt.Fprintf(formatter.Writer, "✗ Catalog invalid: %d error(s)\n", len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
}
