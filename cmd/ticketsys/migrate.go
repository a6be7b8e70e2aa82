package main

import (
	"github.com/spf13/cobra"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.NewPostgresDB(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context(), logger); err != nil {
			return err
		}
		logger.Info("✅ Migrations applied")
		return nil
	},
}
