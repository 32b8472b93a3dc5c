package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/postgres"
	"github.com/spf13/cobra"
)

var errMigrateNeedsPostgres = errors.New("migrations require the postgres database driver")

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <command> [args...]",
		Short: "Run database migrations",
		Long: fmt.Sprintf("Run a goose migration command against the configured database.\n\nCommands: %s",
			strings.Join(postgres.MigrationCommands, ", ")),
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("a migration command is required")
			}
			if !slices.Contains(postgres.MigrationCommands, args[0]) {
				return fmt.Errorf("unknown migration command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errMigrateNeedsPostgres
			}
			log := logger.Setup(cfg.Server)

			db, err := postgres.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(ctx, db, args[0], log, args[1:]...)
		},
	}
}
