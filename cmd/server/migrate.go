package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"blog-server/internal/config"
	"blog-server/internal/repository/sqlite"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Manage the database schema.

Subcommands:
  up      - Apply pending migrations
  down    - Roll back the latest migration
  status  - Show migration status`,
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply pending migrations", sqlite.Migrate),
		migrateSubcommand("down", "Roll back the latest migration", sqlite.Rollback),
		migrateSubcommand("status", "Show migration status", sqlite.MigrationStatus),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(context.Context, *sql.DB, logrus.FieldLogger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg)

			db, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := run(cmd.Context(), db, logger); err != nil {
				return err
			}
			logger.Infof("migrate %s done (%s)", use, cfg.Database.Path)
			return nil
		},
	}
}
