package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chachabrian/zapshift-backend/internal/config"
	"github.com/chachabrian/zapshift-backend/internal/database"
	"github.com/chachabrian/zapshift-backend/internal/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.DatabaseConfig
			if err := config.LoadSection(&cfg); err != nil {
				return err
			}
			l := logger.New(os.Stdout, os.Getenv("LOG_LEVEL"))

			db, err := database.InitDB(cfg, l)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("get database instance: %w", err)
			}
			defer sqlDB.Close()

			if err := database.RunMigrations(db); err != nil {
				return err
			}
			l.Info("migrations applied")
			return nil
		},
	}
}
