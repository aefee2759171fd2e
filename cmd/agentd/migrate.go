package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-agent-backend/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.DB.Driver == repo.DriverMemory {
			return fmt.Errorf("migrate: nothing to do for DB_DRIVER=%s", repo.DriverMemory)
		}
		db, err := repo.Open(cfg.DB.Driver, cfg.DB.Path, cfg.DB.URL)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("driver", cfg.DB.Driver).Msg("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
