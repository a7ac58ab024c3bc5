package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icook-app/icook/internal/app/storage/postgres"
	"github.com/icook-app/icook/internal/config"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or revert the embedded schema migrations.

Examples:
  icook migrate up               # Apply all pending migrations
  icook migrate down --steps 1   # Revert the latest migration
  icook migrate down             # Revert everything`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadDatabaseConfig(root)
			if err != nil {
				return err
			}
			version, err := postgres.Migrate(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadDatabaseConfig(root)
			if err != nil {
				return err
			}
			version, err := postgres.Rollback(cfg.Database.Driver, cfg.Database.DSN, steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "Number of migrations to revert (0 reverts all)")

	cmd.AddCommand(up, down)
	return cmd
}

func loadDatabaseConfig(root *rootOptions) (*config.Config, error) {
	cfg, err := root.load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return nil, fmt.Errorf("migrations need a PostgreSQL driver, got %q", cfg.Database.Driver)
	}
	return cfg, nil
}
