package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scry-decks/internal/api"
	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/gemini"
	"github.com/phrazzld/scry-decks/internal/platform/memory"
	"github.com/phrazzld/scry-decks/internal/platform/postgres"
	"github.com/phrazzld/scry-decks/internal/platform/sheets"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/service/auth"
	"github.com/phrazzld/scry-decks/internal/service/decks"
	"github.com/phrazzld/scry-decks/internal/service/dynsync"
	"github.com/phrazzld/scry-decks/internal/service/selection"
	"github.com/phrazzld/scry-decks/internal/source"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/task"
	"github.com/phrazzld/scry-decks/internal/userlock"
	"golang.org/x/sync/errgroup"
)

// application holds the wired dependencies of the server.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	db          *sql.DB
	scheduler   *task.Scheduler
	coordinator dynsync.Coordinator
	handler     http.Handler
}

// newApplication wires every service. db may be nil when the memory driver
// is configured.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	repo, err := newRepository(cfg.Database, db, logger)
	if err != nil {
		return nil, err
	}

	srsService, err := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		HardIntervals:   cfg.Scheduling.HardIntervals,
		MediumIntervals: cfg.Scheduling.MediumIntervals,
		EasyIntervals:   cfg.Scheduling.EasyIntervals,
	}))
	if err != nil {
		return nil, fmt.Errorf("invalid interval tables: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	registry, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	locks := userlock.New()
	scheduler := task.NewScheduler(task.DefaultSchedulerConfig(), logger)

	coordinator := dynsync.NewCoordinator(repo, registry, scheduler, locks, logger,
		dynsync.WithPolicy(domain.SyncPolicy{
			AttemptLimit: cfg.Sync.AttemptLimit,
			Cooldown:     cfg.Sync.Cooldown,
		}),
		dynsync.WithPeriod(cfg.Sync.Interval),
		dynsync.WithFetchTimeout(cfg.Sync.FetchTimeout),
	)
	scheduler.RegisterHandler(task.JobKindDynamicSync, coordinator.HandleJob)

	handler := api.NewRouter(api.Dependencies{
		Verifier:       verifier,
		Selection:      selection.NewService(repo, srsService, locks, logger, selection.WithPageSize(cfg.Scheduling.PageSize)),
		Decks:          decks.NewService(repo, locks, logger, func() time.Time { return time.Now().UTC() }),
		Sync:           coordinator,
		Settings:       service.NewSettingsService(repo, locks, logger),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:         logger,
	})

	return &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		scheduler:   scheduler,
		coordinator: coordinator,
		handler:     handler,
	}, nil
}

func newRepository(cfg config.DatabaseConfig, db *sql.DB, logger *slog.Logger) (store.Repository, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory repository, data is lost on exit")
		return memory.NewRepository(), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres driver requires a database connection")
		}
		return postgres.NewRepository(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newRegistry registers a fetcher for every source type with credentials.
// Types without one fail their syncs as unavailable.
func newRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry()
	registry.Register(domain.SyncTypeNotion, source.Notion{})

	if cfg.Sheets.APIKey != "" {
		fetcher, err := sheets.NewFetcher(ctx, cfg.Sheets, cfg.Sync.FetchTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets fetcher: %w", err)
		}
		registry.Register(domain.SyncTypeSheet, fetcher)
	} else {
		logger.Info("sheets API key not set, sheet syncs are disabled")
	}

	if cfg.LLM.GeminiAPIKey != "" {
		fetcher, err := gemini.NewFetcher(ctx, cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini fetcher: %w", err)
		}
		registry.Register(domain.SyncTypeGemini, fetcher)
	} else {
		logger.Info("gemini API key not set, gemini syncs are disabled")
	}

	return registry, nil
}

// Run restores the recurring sync jobs, then serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	restored, err := app.coordinator.RestoreJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore sync jobs: %w", err)
	}
	app.logger.Info("restored sync jobs", slog.Int("count", restored))

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(app.config.Server.Port),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.scheduler.Run(gctx)
	})
	g.Go(func() error {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err = g.Wait()
	app.cleanup()
	return err
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", slog.Any("error", err))
	}
}
