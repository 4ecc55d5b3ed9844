package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outlay/internal/cli"
	"outlay/internal/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
		Long:  `Apply, roll back or inspect migrations of the database at SQLITE_DB_PATH (or --db).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RollbackMigrations(a.cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd, a.cfg.SQLiteDBPath)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	v, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s schema version %d", dbPath, v)
	if dirty {
		fmt.Fprintln(cmd.OutOrStdout(), cli.WarningStyle.Render(line+" (dirty)"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(line))
	return nil
}
