package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
)

// UserCardStore implements store.UserCardStore using a PostgreSQL database.
// History is kept as a JSONB array on the row.
type UserCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserCardStore creates a UserCardStore. If logger is nil, a default logger will be used.
func NewUserCardStore(db store.DBTX, logger *slog.Logger) *UserCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_card_store")),
	}
}

var _ store.UserCardStore = (*UserCardStore)(nil)

// userCardSelect joins the card content so read methods can populate UserCard.Card.
const userCardSelect = `
	SELECT uc.id, uc.user_id, uc.card_id, uc.user_deck_id, uc.deleted, uc.favorite,
	       uc.show_after, uc.history, uc.created_at, uc.updated_at,
	       c.id, c.deck_id, c.external_id, c.front_primary, c.front_secondary,
	       c.back_primary, c.back_secondary, c.created_at
	FROM user_cards uc
	JOIN cards c ON c.id = uc.card_id
`

// CreateMultiple implements store.UserCardStore.CreateMultiple.
func (s *UserCardStore) CreateMultiple(ctx context.Context, cards []*domain.UserCard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return store.NewStoreError("user_card", "create", "invalid user card", err)
		}
	}

	query := `
		INSERT INTO user_cards (id, user_id, card_id, user_deck_id, deleted, favorite,
		                        show_after, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, c := range cards {
		history, err := encodeHistory(c.History)
		if err != nil {
			return store.NewStoreError("user_card", "create", "invalid history", err)
		}
		_, err = s.db.ExecContext(ctx, query,
			c.ID,
			c.UserID,
			c.CardID,
			c.UserDeckID,
			c.Deleted,
			c.Favorite,
			c.ShowAfter,
			history,
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create user card",
				slog.String("error", err.Error()),
				slog.String("user_card_id", c.ID.String()),
				slog.String("user_id", c.UserID.String()))
			return store.NewStoreError("user_card", "create", "insert failed", MapError(err))
		}
	}
	return nil
}

// GetByID implements store.UserCardStore.GetByID.
func (s *UserCardStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.UserCard, error) {
	query := userCardSelect + ` WHERE uc.id = $1 AND uc.user_id = $2`

	card, err := scanUserCard(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user card",
			slog.String("error", err.Error()),
			slog.String("user_card_id", id.String()))
		return nil, MapError(err)
	}
	return card, nil
}

// Update implements store.UserCardStore.Update.
func (s *UserCardStore) Update(ctx context.Context, card *domain.UserCard) error {
	history, err := encodeHistory(card.History)
	if err != nil {
		return store.NewStoreError("user_card", "update", "invalid history", err)
	}

	query := `
		UPDATE user_cards
		SET deleted = $1, favorite = $2, show_after = $3, history = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		card.Deleted,
		card.Favorite,
		card.ShowAfter,
		history,
		card.UpdatedAt,
		card.ID,
		card.UserID,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update user card",
			slog.String("error", err.Error()),
			slog.String("user_card_id", card.ID.String()))
		return store.NewStoreError("user_card", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserCardNotFound)
}

// FindUnreviewed implements store.UserCardStore.FindUnreviewed.
func (s *UserCardStore) FindUnreviewed(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.UserCard, error) {
	query := userCardSelect + `
		WHERE uc.user_id = $1 AND NOT uc.deleted AND uc.history = '[]'::jsonb
		ORDER BY uc.seq
		LIMIT $2
	`
	return s.query(ctx, "find_unreviewed", query, userID, limitArg(limit))
}

// FindDue implements store.UserCardStore.FindDue.
func (s *UserCardStore) FindDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.UserCard, error) {
	query := userCardSelect + `
		WHERE uc.user_id = $1 AND NOT uc.deleted AND uc.history <> '[]'::jsonb
		  AND uc.show_after <= $2
		ORDER BY uc.show_after, uc.seq
		LIMIT $3
	`
	return s.query(ctx, "find_due", query, userID, now, limitArg(limit))
}

// ActiveCardIDs implements store.UserCardStore.ActiveCardIDs.
func (s *UserCardStore) ActiveCardIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id FROM user_cards WHERE user_id = $1 AND NOT deleted`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}

// SoftDeleteByUserDeck implements store.UserCardStore.SoftDeleteByUserDeck.
func (s *UserCardStore) SoftDeleteByUserDeck(ctx context.Context, userID, userDeckID uuid.UUID) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_cards
		SET deleted = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND user_deck_id = $2 AND NOT deleted
	`, userID, userDeckID)
	if err != nil {
		return 0, store.NewStoreError("user_card", "soft_delete", "update failed", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func (s *UserCardStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.UserCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("user card query failed", slog.String("op", op), slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.UserCard
	for rows.Next() {
		card, err := scanUserCard(rows)
		if err != nil {
			log.Error("failed to scan user card", slog.String("op", op), slog.String("error", err.Error()))
			return nil, err
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func scanUserCard(row rowScanner) (*domain.UserCard, error) {
	var (
		uc         domain.UserCard
		card       domain.Card
		history    []byte
		externalID sql.NullString
	)
	err := row.Scan(
		&uc.ID,
		&uc.UserID,
		&uc.CardID,
		&uc.UserDeckID,
		&uc.Deleted,
		&uc.Favorite,
		&uc.ShowAfter,
		&history,
		&uc.CreatedAt,
		&uc.UpdatedAt,
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

	uc.History = []domain.HistoryEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &uc.History); err != nil {
			return nil, fmt.Errorf("decode history of user card %s: %w", uc.ID, err)
		}
	}
	card.ExternalID = externalID.String
	uc.Card = &card
	return &uc, nil
}

func encodeHistory(history []domain.HistoryEntry) (string, error) {
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// limitArg turns a non-positive limit into NULL, which LIMIT treats as unbounded.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
