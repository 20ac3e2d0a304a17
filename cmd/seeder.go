package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/expense-assistant/internal/seed"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the reference data",
	Long:  `Insert the roles, demo users, categories and statuses the app expects. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := gorm.Open(postgres.Open(cfg.Database.Source), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		_, err = seed.ReferenceData(ctx, db, clearData, logger.LoggerWrapper())
		return err
	},
}
