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

// CardStore implements store.CardStore using a PostgreSQL database.
type CardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardStore creates a CardStore over a connection or transaction managed
// by the caller. If logger is nil, a default logger will be used.
func NewCardStore(db store.DBTX, logger *slog.Logger) *CardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

var _ store.CardStore = (*CardStore)(nil)

const cardColumns = `id, deck_id, external_id, front_primary, front_secondary, back_primary, back_secondary, created_at`

// ListByDeck implements store.CardStore.ListByDeck.
func (s *CardStore) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards WHERE deck_id = $1 ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, deckID)
	if err != nil {
		log.Error("failed to list cards",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

// GetByID implements store.CardStore.GetByID.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}
	return card, nil
}

// CreateMultiple implements store.CardStore.CreateMultiple.
// Cards are inserted one statement at a time; run it inside
// Repository.WithinTx to make the batch atomic.
func (s *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return store.NewStoreError("card", "create", "invalid card", err)
		}
	}

	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, c := range cards {
		_, err := s.db.ExecContext(ctx, query,
			c.ID,
			c.DeckID,
			nullString(c.ExternalID),
			c.FrontPrimary,
			c.FrontSecondary,
			c.BackPrimary,
			c.BackSecondary,
			c.CreatedAt,
		)
		if err != nil {
			log.Error("failed to create card",
				slog.String("error", err.Error()),
				slog.String("card_id", c.ID.String()),
				slog.String("deck_id", c.DeckID.String()))
			return store.NewStoreError("card", "create", "insert failed", MapError(err))
		}
	}

	log.Debug("cards created", slog.Int("count", len(cards)))
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card       domain.Card
		externalID sql.NullString
	)
	err := row.Scan(
		&card.ID,
		&card.DeckID,
		&externalID,
		&card.FrontPrimary,
		&card.FrontSecondary,
		&card.BackPrimary,
		&card.BackSecondary,
		&card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	card.ExternalID = externalID.String
	return &card, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
