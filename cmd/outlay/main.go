// Command outlay tracks personal expenses. It serves the web app and offers
// the same operations from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outlay/internal/backend"
	"outlay/internal/cli"
	"outlay/internal/config"
	applog "outlay/internal/log"
)

var version = "dev"

// app carries what every subcommand needs once flags and the environment
// have been read.
type app struct {
	backendFlag string
	dbFlag      string
	prefsFlag   string
	logLevel    string
	logFormat   string

	cfg    *config.Config
	logger *applog.Logger
}

func main() {
	cli.LoadEnvFile()

	if err := newRootCmd(&app{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "outlay",
		Short: "Personal expense tracker",
		Long: `outlay records expenses by category, summarises spending over a date range
and warns when a month's spending goes over the configured limit.

Configuration comes from the environment (see .env); the flags below override it.
The memory backend keeps nothing between runs, so terminal commands are most
useful with --backend sqlite.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.backendFlag, "backend", "", "data backend (memory, sqlite); overrides DATA_BACKEND")
	flags.StringVar(&a.dbFlag, "db", "", "SQLite database path; overrides SQLITE_DB_PATH")
	flags.StringVar(&a.prefsFlag, "prefs", "", "preferences YAML file; enables file preferences")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newExpensesCmd(a),
		newCategoriesCmd(a),
		newSettingsCmd(a),
		newTotalsCmd(a),
		newWatchCmd(a),
	)
	return root
}

// init loads the environment configuration, applies flag overrides and sets
// up logging.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.backendFlag != "" {
		cfg.DataBackend = a.backendFlag
	}
	if a.dbFlag != "" {
		cfg.SQLiteDBPath = a.dbFlag
	}
	if a.prefsFlag != "" {
		cfg.PrefsBackend = "file"
		cfg.PrefsFile = a.prefsFlag
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

// open builds the configured backend. Callers must run the returned
// result's Cleanup.
func (a *app) open(ctx context.Context) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger.Logger).CreateBackend(ctx, bcfg)
}

// withBackend runs fn against a freshly opened backend and closes it after.
func (a *app) withBackend(cmd *cobra.Command, fn func(context.Context, *backend.BackendResult) error) error {
	ctx := cmd.Context()
	res, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.WarnContext(ctx, "Cleanup failed", applog.FieldError, err)
		}
	}()
	return fn(ctx, res)
}
