package cli

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	invoicing "github.com/set-night/invoicing"
	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			return migrateUp(cfg.DatabaseURL)
		},
	}
}

func migrateUp(databaseURL string) error {
	migrationsFS, err := fs.Sub(invoicing.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	return repository.RunMigrations(databaseURL, migrationsFS)
}
