package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
)

// UserDeckStore implements store.UserDeckStore using a PostgreSQL database.
type UserDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserDeckStore creates a UserDeckStore. If logger is nil, a default logger will be used.
func NewUserDeckStore(db store.DBTX, logger *slog.Logger) *UserDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_deck_store")),
	}
}

var _ store.UserDeckStore = (*UserDeckStore)(nil)

const userDeckColumns = `id, user_id, deck_id, sort_order, enabled, deleted,
	cards_count, cards_learned, dynamic, created_at, updated_at`

// Create implements store.UserDeckStore.Create.
func (s *UserDeckStore) Create(ctx context.Context, deck *domain.UserDeck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		return store.NewStoreError("user_deck", "create", "invalid user deck", err)
	}

	query := `
		INSERT INTO user_decks (` + userDeckColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		deck.ID,
		deck.UserID,
		deck.DeckID,
		deck.Order,
		deck.Enabled,
		deck.Deleted,
		deck.CardsCount,
		deck.CardsLearned,
		deck.Dynamic,
		deck.CreatedAt,
		deck.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrDynamicDeckExists) {
			log.Warn("second dynamic deck rejected", slog.String("user_id", deck.UserID.String()))
		} else {
			log.Error("failed to create user deck",
				slog.String("error", err.Error()),
				slog.String("user_deck_id", deck.ID.String()))
		}
		return store.NewStoreError("user_deck", "create", "insert failed", mapped)
	}

	log.Info("user deck created",
		slog.String("user_deck_id", deck.ID.String()),
		slog.String("user_id", deck.UserID.String()),
		slog.Int64("order", deck.Order),
		slog.Bool("dynamic", deck.Dynamic))
	return nil
}

// GetByID implements store.UserDeckStore.GetByID.
func (s *UserDeckStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.UserDeck, error) {
	query := `SELECT ` + userDeckColumns + ` FROM user_decks WHERE id = $1 AND user_id = $2`
	return s.getOne(ctx, query, id, userID)
}

// Update implements store.UserDeckStore.Update.
func (s *UserDeckStore) Update(ctx context.Context, deck *domain.UserDeck) error {
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("user_deck", "update", "invalid user deck", err)
	}

	query := `
		UPDATE user_decks
		SET sort_order = $1, enabled = $2, deleted = $3,
		    cards_count = $4, cards_learned = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		deck.Order,
		deck.Enabled,
		deck.Deleted,
		deck.CardsCount,
		deck.CardsLearned,
		deck.UpdatedAt,
		deck.ID,
		deck.UserID,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update user deck",
			slog.String("error", err.Error()),
			slog.String("user_deck_id", deck.ID.String()))
		return store.NewStoreError("user_deck", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserDeckNotFound)
}

// ListActive implements store.UserDeckStore.ListActive.
func (s *UserDeckStore) ListActive(ctx context.Context, userID uuid.UUID) ([]*domain.UserDeck, error) {
	query := `SELECT ` + userDeckColumns + `
		FROM user_decks
		WHERE user_id = $1 AND NOT deleted
		ORDER BY sort_order`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list user decks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*domain.UserDeck
	for rows.Next() {
		deck, err := scanUserDeck(rows)
		if err != nil {
			return nil, MapError(err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return decks, nil
}

// FindDynamic implements store.UserDeckStore.FindDynamic.
func (s *UserDeckStore) FindDynamic(ctx context.Context, userID uuid.UUID) (*domain.UserDeck, error) {
	query := `SELECT ` + userDeckColumns + `
		FROM user_decks
		WHERE user_id = $1 AND dynamic AND NOT deleted`
	return s.getOne(ctx, query, userID)
}

// FindByDeck implements store.UserDeckStore.FindByDeck.
func (s *UserDeckStore) FindByDeck(ctx context.Context, userID, deckID uuid.UUID) (*domain.UserDeck, error) {
	query := `SELECT ` + userDeckColumns + `
		FROM user_decks
		WHERE user_id = $1 AND deck_id = $2 AND NOT deleted
		LIMIT 1`
	return s.getOne(ctx, query, userID, deckID)
}

func (s *UserDeckStore) getOne(ctx context.Context, query string, args ...any) (*domain.UserDeck, error) {
	deck, err := scanUserDeck(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserDeckNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user deck",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return deck, nil
}

func scanUserDeck(row rowScanner) (*domain.UserDeck, error) {
	var d domain.UserDeck
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DeckID,
		&d.Order,
		&d.Enabled,
		&d.Deleted,
		&d.CardsCount,
		&d.CardsLearned,
		&d.Dynamic,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
