package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kerhoff/remindbot/internal/config"
	"github.com/Kerhoff/remindbot/pkg/logger"
)

// migrateCmd applies the embedded schema migrations and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		l := logger.New(cfg.LogLevel, cfg.LogFormat)

		db, err := config.NewDatabase(cfg.DatabaseURL, l)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	},
}
