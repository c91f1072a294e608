package main

import (
	"github.com/spf13/cobra"

	"github.com/emilythestrangee/housecup/backend/internal/database"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(); err != nil {
				return err
			}
			logger.Info("✅ Database migrated")
			return nil
		},
	}
}
