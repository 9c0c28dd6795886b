/*
Package main provides the CLI commands for managing database migrations of the record
list datasource.
*/

package main

import (
	"fmt"

	"github.com/blnkfinance/recordlist/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCommands(b *listInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run record list migrations",
	}

	cmd.AddCommand(migrateDirectionCommand(b, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(b, "down", migrate.Down))
	return cmd
}

// migrateDirectionCommand applies or rolls back at most --max migrations (0 means all).
func migrateDirectionCommand(b *listInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.ConnectDB(b.cnf.DataSource.Driver, b.cnf.DataSource.Dns)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer db.Close()

			n, err := database.Migrate(db, b.cnf.DataSource.Driver, direction, max)
			if err != nil {
				return fmt.Errorf("error migrating %s: %w", use, err)
			}
			logrus.WithFields(logrus.Fields{"direction": use, "count": n}).Info("migrations applied")
			return nil
		},
	}
	cmd.Flags().IntVar(&max, "max", 0, "maximum number of migrations to run")
	return cmd
}
