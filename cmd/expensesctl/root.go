package main

import (
	"github.com/spf13/cobra"

	"expenses/internal/cli"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	dbPath   string
	logLevel string
}

// sqlitePath returns --db, or the configured SQLite path.
func (o *options) sqlitePath() string {
	if o.dbPath != "" {
		return o.dbPath
	}
	return config.Load().SQLiteDBPath
}

func (o *options) openStore() (*storage.SQLiteRepository, error) {
	return storage.NewSQLiteRepository(o.sqlitePath())
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "expensesctl",
		Short: "Administer the expenses database and try category suggestions",
		Long: `expensesctl runs schema migrations, loads seed categories and examples,
and queries the suggestion engine directly against the SQLite database.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			applog.SetDefault(applog.New(applog.Config{
				Level:     applog.ParseLevel(opts.logLevel),
				Format:    "text",
				Component: applog.ComponentApp,
				Output:    cmd.ErrOrStderr(),
			}))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newSuggestCmd(opts),
		newCategoriesCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
