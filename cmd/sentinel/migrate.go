// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/machinenativeops/sentinel/internal/config"
	"github.com/machinenativeops/sentinel/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, down)
		},
	}

	cmd.Flags().String("database-url", "", "PostgreSQL URL")
	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations (destructive)")

	return cmd
}

func runMigrate(cmd *cobra.Command, down bool) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	databaseURL := cfg.DatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (flag, config file, or DATABASE_URL)")
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close() //nolint:errcheck // close error after completed migration is not actionable
	}()

	if down {
		cmd.Println("Rolling back migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed")
		return nil
	}

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return err
	}

	migrated, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed (version %d, dirty=%v)\n", migrated, dirty)
	return nil
}
