package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/database/seeders"
	"github.com/feastly/feastly/internal/server"
	"github.com/feastly/feastly/pkg/database"
	"github.com/feastly/feastly/pkg/migration"
)

// bootDB loads config and opens the SQL connection. Mongo and the memory
// store are schemaless and have nothing to migrate.
func bootDB() error {
	if err := config.Load(); err != nil {
		return err
	}
	switch config.DatabaseDriver() {
	case "mongo", "memory":
		return errors.New("migrations only apply to SQL drivers (DB_DRIVER=" + config.DatabaseDriver() + ")")
	}
	return database.Connect()
}

// feastly migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Running migrations…")
		n, err := migration.New(database.DB, out).Run()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d migration(s) applied\n", n)
		return nil
	},
}

// feastly migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Rolling back last batch…")
		n, err := migration.New(database.DB, out).Rollback()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d migration(s) rolled back\n", n)
		return nil
	},
}

// feastly migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		rows, err := migration.New(database.DB, cmd.OutOrStdout()).Status()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tRAN\tBATCH")
		for _, s := range rows {
			batch := "-"
			if s.Ran {
				batch = fmt.Sprint(s.Batch)
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", s.Name, s.Ran, batch)
		}
		return w.Flush()
	},
}

// feastly seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all seeders against the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx := context.Background()
		store, err := server.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(ctx) }()

		fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
		return seeders.RunAll(ctx, store, cmd.OutOrStdout())
	},
}
