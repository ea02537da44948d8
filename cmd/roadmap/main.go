// Command roadmap builds and governs a static-site project roadmap kept as
// Markdown files under a content root.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpggio/roadmap/internal/calendar"
	"github.com/rpggio/roadmap/internal/config"
	"github.com/rpggio/roadmap/internal/domain/activity"
	"github.com/rpggio/roadmap/internal/domain/run"
	"github.com/rpggio/roadmap/internal/engine"
	"github.com/rpggio/roadmap/internal/sqlite"
)

var version = "0.1.0-dev"

// errFailed reports a failed operation whose details were already printed.
var errFailed = errors.New("roadmap: operation failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

type rootFlags struct {
	contentDir    string
	publicDir     string
	dbPath        string
	logLevel      string
	logPath       string
	referenceDate string
	json          bool
}

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	engine   *engine.Engine
	db       *sqlite.DB
	runs     *run.Service
	activity *activity.Service
	ref      calendar.Date
	json     bool
	closers  []func() error
}

func newRootCmd(a *app) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Govern a Markdown project roadmap and publish master_data.json",
		Long: `roadmap validates project and status-update records, resolves
date-driven status changes, computes capacity and prioritization scores,
and publishes a single JSON snapshot for the static site.

Settings come from ROADMAP_CONFIG_PATH (YAML), then ROADMAP_* environment
variables, then flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.contentDir, "content", "", "content root (default from config: _content)")
	pf.StringVar(&flags.publicDir, "public", "", "output directory (default from config: public)")
	pf.StringVar(&flags.dbPath, "db", "", "run ledger database path; empty string disables the ledger")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&flags.logPath, "log-file", "", "also write logs to this file")
	pf.StringVar(&flags.referenceDate, "reference-date", "", "resolve statuses as of this YYYY-MM-DD date (default today, UTC)")
	pf.BoolVar(&flags.json, "json", false, "print machine-readable output")

	rootCmd.AddCommand(
		newBuildCmd(a),
		newValidateCmd(a),
		newMidnightCmd(a),
		newSmartQueueCmd(a),
		newPromoteCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("content") {
		cfg.Content.Dir = flags.contentDir
	}
	if pf.Changed("public") {
		cfg.Content.PublicDir = flags.publicDir
	}
	if pf.Changed("db") {
		cfg.DB.Path = flags.dbPath
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if pf.Changed("log-file") {
		cfg.Log.Path = flags.logPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.json = flags.json

	if flags.referenceDate != "" {
		ref, err := calendar.Parse(flags.referenceDate)
		if err != nil {
			return fmt.Errorf("--reference-date: %w", err)
		}
		a.ref = ref
	}

	// Logs go to stderr so stdout carries only command output (and
	// JSON-RPC in stdio serve mode).
	logWriter := io.Writer(cmd.ErrOrStderr())
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "log file error: %v\n", err)
		} else {
			a.closers = append(a.closers, file.Close)
			logWriter = io.MultiWriter(logWriter, fileWriter)
		}
	}
	a.logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	opts := []engine.Option{}
	if cfg.DB.Path != "" {
		if err := a.openLedger(cmd.Context()); err != nil {
			return err
		}
		opts = append(opts,
			engine.WithRunLedger(a.runs, a.activity),
			engine.WithIDLedger(sqlite.NewLedgerRepository(a.db)),
		)
	}
	a.engine = engine.New(cfg.Content.Dir, cfg.Content.PublicDir, a.logger, opts...)
	return nil
}

func (a *app) openLedger(ctx context.Context) error {
	if err := ensureDBDir(a.cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(a.cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.RunMigrationsContext(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	a.db = db
	a.runs = run.NewService(sqlite.NewRunRepository(db), a.logger)
	a.activity = activity.NewService(sqlite.NewActivityRepository(db), a.logger)
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
