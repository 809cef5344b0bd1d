// Package cli implements the studytimer command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"studytimer/internal/config"
	"studytimer/internal/paths"
	"studytimer/internal/recovery"
	"studytimer/internal/runlog"
	"studytimer/internal/session"
	"studytimer/internal/store"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// annotationNoStore marks commands that run without opening the database.
const annotationNoStore = "no-store"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by one invocation of the root command.
type app struct {
	flags  rootFlags
	stdout io.Writer
	stderr io.Writer

	configDir string
	dataDir   string
	cfg       *config.Config
	limits    session.Limits

	store     *store.Store
	sink      *runlog.StoreSink
	recovered []session.TempSession
	prevLog   *slog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// NewRootCmd creates the top-level "studytimer" command with global flags
// and all subcommands registered. The caller must call the returned close
// function once the command has run.
func NewRootCmd() (*cobra.Command, func()) {
	a := newApp(os.Stdout, os.Stderr)
	return a.rootCmd(), a.close
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studytimer",
		Short: "A study timer that keeps a durable history of your sessions",
		Long: "Studytimer times repetitions of focused study with breaks in between,\n" +
			"records every completed run, and reports runs cut short by a crash.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/studytimer)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/studytimer)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(a.newRunCmd())
	root.AddCommand(a.newPomodoroCmd())
	root.AddCommand(a.newRecordCmd())
	root.AddCommand(a.newHistoryCmd())
	root.AddCommand(a.newLogsCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newRecoverCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, closeApp := NewRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	stop()
	os.Exit(exitCode(err))
}

// setup loads .env and the configuration, opens the store, routes slog
// through the runtime log and reports sessions interrupted by a crash.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(a.stderr, "warning: could not read .env:", err)
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	limits, err := cfg.SessionLimits()
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	a.configDir, a.cfg, a.limits, a.dataDir = configDir, cfg, limits, dataDir

	if cmd.Annotations[annotationNoStore] == "true" {
		return nil
	}
	return a.openStore(cmd)
}

func (a *app) openStore(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := store.Open(ctx, a.cfg.DBPath(a.dataDir))
	if err != nil {
		return err
	}
	a.store = st
	a.sink = runlog.NewStoreSink(st,
		runlog.WithConsole(a.stderr),
		runlog.WithMaxLength(a.cfg.Limits.MaxLogMessageLength))

	a.prevLog = slog.Default()
	slog.SetDefault(slog.New(runlog.NewHandler(a.sink, a.cfg.Level().Slog())))

	leftover, err := recovery.Recover(ctx, st, a.sink)
	if err != nil {
		fmt.Fprintln(a.stderr, "warning:", err)
		return nil
	}
	a.recovered = leftover
	if cmd.Name() != "recover" {
		for _, ts := range leftover {
			fmt.Fprintln(a.stderr, "warning:", recovery.Describe(ts))
		}
	}
	return nil
}

func (a *app) close() {
	if a.prevLog != nil {
		slog.SetDefault(a.prevLog)
		a.prevLog = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			fmt.Fprintln(a.stderr, "warning: close store:", err)
		}
		a.store = nil
	}
}

// usageError marks bad arguments or flags.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exitCode maps an error to the process exit status: storage failures are
// system errors, everything else the user can fix.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, session.ErrValidation):
		return exitUserError
	case errors.Is(err, store.ErrInit), errors.Is(err, store.ErrWrite), errors.Is(err, store.ErrRead):
		return exitSysError
	default:
		return exitUserError
	}
}
