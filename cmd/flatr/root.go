package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/flatr/pkg/config"
	"github.com/walteh/flatr/pkg/flatlog"
	"github.com/walteh/flatr/pkg/flatten"
	"github.com/walteh/flatr/pkg/runlock"
	"github.com/walteh/flatr/pkg/sanitize"
)

var (
	// Flags
	flagAction    string
	flagRules     string
	flagSeparator string
	flagVerify    bool
	flagWorkers   int
	flagIgnore    []string
	flagDebug     bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatr SOURCE DESTINATION",
		Short: "Flattens a directory tree, collapsing single-child chains into compound names",
		Long: `flatr copies or moves a source directory's contents into a destination,
collapsing chains of directories that each hold exactly one subdirectory and
no files into a single compound name (extracted/payload/data becomes
extracted++payload++data). Directory names can be rewritten by an ordered
list of sanitization rules, and every transfer can be verified with a
sha256 content hash.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runFlatten,
	}

	cmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
	cmd.Flags().StringVar(&flagAction, "action", "copy", "action to perform: copy or move")
	cmd.Flags().StringVar(&flagRules, "rules", "", "path to a sanitization rules file (.json, .yaml, or .hcl)")
	cmd.Flags().StringVar(&flagSeparator, "separator", config.DefaultSeparator, "separator for collapsed directory names")
	cmd.Flags().BoolVar(&flagVerify, "verify", false, "verify every transfer with a sha256 hash (slower)")
	cmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "number of parallel transfer workers (default: 75% of CPUs)")
	cmd.Flags().StringSliceVar(&flagIgnore, "ignore", nil, "glob patterns for files to skip (repeatable)")

	cmd.AddCommand(
		newRenameCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setupContext builds the run's logging context: zerolog to stderr with a
// run id, the user-facing console logger to stdout.
func setupContext(cmd *cobra.Command) (context.Context, *flatlog.Logger) {
	level := zerolog.InfoLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}

	zlog := zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
	ctx := zlog.WithContext(cmd.Context())

	ulog := flatlog.New(os.Stdout, level)
	return flatlog.NewContext(ctx, ulog), ulog
}

// defaultWorkerCount sizes the pool at 75% of available CPUs, at least 1.
func defaultWorkerCount() int {
	n := runtime.NumCPU() * 3 / 4
	if n < 1 {
		n = 1
	}
	return n
}

// runFlatten runs the flattening itself
func runFlatten(cmd *cobra.Command, args []string) error {
	ctx, ulog := setupContext(cmd)
	source, dest := args[0], args[1]

	action, err := config.ParseAction(flagAction)
	if err != nil {
		ulog.Errorf("%v", err)
		return err
	}

	workers := flagWorkers
	if workers <= 0 {
		workers = defaultWorkerCount()
	}

	var rules []sanitize.Rule
	if flagRules != "" {
		rules, err = config.LoadRules(ctx, flagRules)
		if err != nil {
			ulog.Errorf("loading rules: %v", err)
			return err
		}
		ulog.Infof("loaded %d sanitization rules from %s", len(rules), flagRules)
	}

	cfg := &config.RunConfiguration{
		Action:         action,
		VerifyHash:     flagVerify,
		Separator:      flagSeparator,
		WorkerCount:    workers,
		Rules:          rules,
		IgnorePatterns: flagIgnore,
	}
	if err := cfg.Validate(); err != nil {
		ulog.Errorf("%v", err)
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		err = errors.Errorf("creating destination %s: %w", dest, err)
		ulog.Errorf("%v", err)
		return err
	}

	lock, err := runlock.Acquire(dest)
	if err != nil {
		ulog.Errorf("%v", err)
		return err
	}
	defer lock.Release()

	ulog.Header(fmt.Sprintf("%s: %s -> %s", cfg, source, dest))

	flattener, err := flatten.New(cfg, source, dest)
	if err != nil {
		ulog.Errorf("%v", err)
		return err
	}

	start := time.Now()
	runErr := flattener.Run(ctx)
	elapsed := time.Since(start)

	stats := flattener.Stats()
	ulog.LogNewline()
	if runErr != nil {
		ulog.Errorf("%s completed with errors in %.2fs: %v", cfg.Action, elapsed.Seconds(), runErr)
		return runErr
	}
	ulog.Successf("%s completed in %.2fs: %d files into %d directories (%d collapsed, %d skipped)",
		cfg.Action, elapsed.Seconds(),
		stats.FilesTransferred.Load(), stats.DirsMaterialized.Load(),
		stats.DirsCollapsed.Load(), stats.DirsSkipped.Load())
	return nil
}
