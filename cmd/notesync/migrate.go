package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ultramynd/notesync/internal/config"
	"github.com/ultramynd/notesync/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := store.NewSQLStore(cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", db.Driver())
		return nil
	},
}
