package main

import (
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the sync scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Server)
			log.Info("server configuration loaded",
				slog.Int("port", cfg.Server.Port),
				slog.String("log_level", cfg.Server.LogLevel),
				slog.String("database_driver", cfg.Database.Driver))

			var db *sql.DB
			if cfg.Database.Driver == "postgres" {
				db, err = postgres.Open(ctx, cfg.Database.URL)
				if err != nil {
					return err
				}
				if migrate {
					if err := postgres.Migrate(ctx, db, "up", log); err != nil {
						_ = db.Close()
						return err
					}
				}
			}

			app, err := newApplication(ctx, cfg, log, db)
			if err != nil {
				if db != nil {
					_ = db.Close()
				}
				return err
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
