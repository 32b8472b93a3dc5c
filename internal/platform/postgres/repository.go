package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Connection pool settings.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open opens a connection pool for dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Repository is a store.Repository backed by a PostgreSQL connection pool.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates a Repository over db. If logger is nil, a default
// logger will be used.
func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Stores implements store.Repository.
func (r *Repository) Stores() store.Stores {
	return newStores(r.db, r.logger)
}

// WithinTx implements store.Repository.
func (r *Repository) WithinTx(ctx context.Context, fn store.StoresFn) error {
	ctx = logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, r.logger))
	return store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, newStores(tx, r.logger))
	})
}

func newStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Cards:     NewCardStore(db, logger),
		Decks:     NewDeckStore(db, logger),
		UserCards: NewUserCardStore(db, logger),
		UserDecks: NewUserDeckStore(db, logger),
		Settings:  NewSettingsStore(db, logger),
	}
}
