package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/service"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/userlock"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	repo       store.Repository
	srsService srs.Service
	locks      *userlock.Locker
	logger     *slog.Logger

	pageSize int
	now      func() time.Time
	shuffle  ShuffleFunc
}

// NewService creates the selection service.
func NewService(
	repo store.Repository,
	srsService srs.Service,
	locks *userlock.Locker,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if repo == nil {
		panic("repo cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if locks == nil {
		panic("locks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		repo:       repo,
		srsService: srsService,
		locks:      locks,
		logger:     logger.With(slog.String("component", "selection_service")),
		pageSize:   DefaultPageSize,
		now:        func() time.Time { return time.Now().UTC() },
		shuffle:    rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetActiveCards implements Service.GetActiveCards.
func (s *serviceImpl) GetActiveCards(ctx context.Context, userID uuid.UUID) ([]*domain.UserCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	var (
		cards  []*domain.UserCard
		source string
	)
	err := s.locks.Do(ctx, userID, func() error {
		var err error
		cards, source, err = s.selectCards(ctx, userID)
		return err
	})
	if err != nil {
		log.Error("failed to select active cards", slog.String("error", err.Error()))
		return nil, service.Wrap("get_active_cards", err)
	}

	log.Debug("selected active cards",
		slog.String("source", source),
		slog.Int("count", len(cards)))
	return cards, nil
}

// selectCards runs the cascade; callers hold the user lock.
func (s *serviceImpl) selectCards(ctx context.Context, userID uuid.UUID) ([]*domain.UserCard, string, error) {
	stores := s.repo.Stores()
	now := s.now()

	settings, err := stores.Settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		settings = domain.NewSettings(userID, now)
	} else if err != nil {
		return nil, "", fmt.Errorf("failed to get settings: %w", err)
	}

	pool, err := stores.UserCards.FindUnreviewed(ctx, userID, s.pageSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find unreviewed cards: %w", err)
	}
	if len(pool) > 0 {
		return pool, "pool", nil
	}

	if settings.DynamicHighPriority {
		dynamic, err := stores.UserDecks.FindDynamic(ctx, userID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, "", fmt.Errorf("failed to find dynamic deck: %w", err)
		default:
			drawn, err := s.draw(ctx, userID, dynamic)
			if err != nil {
				return nil, "", err
			}
			if len(drawn) > 0 {
				return drawn, "dynamic", nil
			}
		}
	}

	if settings.ShowLearned {
		due, err := stores.UserCards.FindDue(ctx, userID, now, s.pageSize)
		if err != nil {
			return nil, "", fmt.Errorf("failed to find due cards: %w", err)
		}
		if len(due) > 0 {
			return due, "due", nil
		}
	}

	decks, err := stores.UserDecks.ListActive(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list decks: %w", err)
	}
	enabled := make([]*domain.UserDeck, 0, len(decks))
	for _, d := range decks {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	if settings.ShuffleDecks {
		s.shuffle(len(enabled), func(i, j int) { enabled[i], enabled[j] = enabled[j], enabled[i] })
	}

	for _, deck := range enabled {
		drawn, err := s.draw(ctx, userID, deck)
		if err != nil {
			return nil, "", err
		}
		if len(drawn) > 0 {
			return drawn, "deck", nil
		}
	}

	return []*domain.UserCard{}, "none", nil
}

// draw materializes up to pageSize random cards of deck that the user does
// not already hold. Callers hold the user lock.
func (s *serviceImpl) draw(ctx context.Context, userID uuid.UUID, deck *domain.UserDeck) ([]*domain.UserCard, error) {
	var drawn []*domain.UserCard

	err := s.repo.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		cards, err := st.Cards.ListByDeck(ctx, deck.DeckID)
		if err != nil {
			return fmt.Errorf("failed to list deck cards: %w", err)
		}
		held, err := st.UserCards.ActiveCardIDs(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list held cards: %w", err)
		}

		fresh := make([]*domain.Card, 0, len(cards))
		for _, c := range cards {
			if _, ok := held[c.ID]; !ok {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			return nil
		}

		s.shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
		if len(fresh) > s.pageSize {
			fresh = fresh[:s.pageSize]
		}

		now := s.now()
		drawn = make([]*domain.UserCard, 0, len(fresh))
		for _, c := range fresh {
			drawn = append(drawn, domain.NewUserCard(userID, deck.ID, c, now))
		}
		if err := st.UserCards.CreateMultiple(ctx, drawn); err != nil {
			return fmt.Errorf("failed to create user cards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("drew new cards",
		slog.String("user_id", userID.String()),
		slog.String("user_deck_id", deck.ID.String()),
		slog.Int("count", len(drawn)))
	return drawn, nil
}

// RecordOutcome implements Service.RecordOutcome.
func (s *serviceImpl) RecordOutcome(
	ctx context.Context,
	userID, userCardID uuid.UUID,
	outcome domain.Outcome,
) (*CardUpdate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("user_card_id", userCardID.String()),
		slog.String("outcome", string(outcome)))

	if !outcome.Valid() {
		log.Warn("invalid review outcome")
		return nil, domain.ErrInvalidOutcome
	}

	var result *CardUpdate
	err := s.locks.Do(ctx, userID, func() error {
		return s.repo.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
			card, err := getLiveCard(ctx, st, userID, userCardID)
			if err != nil {
				return err
			}

			now := s.now()
			if !card.Reviewable(now) {
				return domain.ErrNotReviewable
			}
			firstReview := !card.Reviewed()

			updated, err := s.srsService.ApplyOutcome(card, outcome, now)
			if err != nil {
				return err
			}
			if err := st.UserCards.Update(ctx, updated); err != nil {
				return fmt.Errorf("failed to update user card: %w", err)
			}
			result = &CardUpdate{Card: updated}

			if !firstReview {
				return nil
			}

			deck, err := st.UserDecks.GetByID(ctx, userID, card.UserDeckID)
			if err != nil {
				return fmt.Errorf("failed to get user deck: %w", err)
			}
			deck.CardsLearned++
			deck.UpdatedAt = now
			if err := st.UserDecks.Update(ctx, deck); err != nil {
				return fmt.Errorf("failed to update user deck: %w", err)
			}
			result.Deck = deck
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotReviewable) {
			log.Debug("card reviewed before it was due")
		} else {
			log.Error("failed to record outcome", slog.String("error", err.Error()))
		}
		return nil, service.Wrap("record_outcome", err)
	}

	log.Debug("recorded outcome", slog.Time("show_after", result.Card.ShowAfter))
	return result, nil
}

// DeleteCard implements Service.DeleteCard.
func (s *serviceImpl) DeleteCard(ctx context.Context, userID, userCardID uuid.UUID) (*CardUpdate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("user_card_id", userCardID.String()))

	var result *CardUpdate
	err := s.locks.Do(ctx, userID, func() error {
		return s.repo.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
			card, err := getLiveCard(ctx, st, userID, userCardID)
			if err != nil {
				return err
			}

			now := s.now()
			card.Deleted = true
			card.UpdatedAt = now
			if err := st.UserCards.Update(ctx, card); err != nil {
				return fmt.Errorf("failed to update user card: %w", err)
			}
			result = &CardUpdate{Card: card}

			deck, err := st.UserDecks.GetByID(ctx, userID, card.UserDeckID)
			if err != nil {
				return fmt.Errorf("failed to get user deck: %w", err)
			}
			if deck.CardsCount == 0 {
				return nil
			}
			deck.CardsCount--
			deck.UpdatedAt = now
			if err := st.UserDecks.Update(ctx, deck); err != nil {
				return fmt.Errorf("failed to update user deck: %w", err)
			}
			result.Deck = deck
			return nil
		})
	})
	if err != nil {
		log.Warn("failed to delete card", slog.String("error", err.Error()))
		return nil, service.Wrap("delete_card", err)
	}

	log.Debug("deleted card")
	return result, nil
}

// ToggleFavorite implements Service.ToggleFavorite.
func (s *serviceImpl) ToggleFavorite(ctx context.Context, userID, userCardID uuid.UUID) (*domain.UserCard, error) {
	var card *domain.UserCard
	err := s.locks.Do(ctx, userID, func() error {
		return s.repo.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
			var err error
			card, err = getLiveCard(ctx, st, userID, userCardID)
			if err != nil {
				return err
			}
			card.Favorite = !card.Favorite
			card.UpdatedAt = s.now()
			return st.UserCards.Update(ctx, card)
		})
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to toggle favorite",
			slog.String("user_id", userID.String()),
			slog.String("user_card_id", userCardID.String()),
			slog.String("error", err.Error()))
		return nil, service.Wrap("toggle_favorite", err)
	}
	return card, nil
}

// getLiveCard loads a non-deleted user card owned by userID.
func getLiveCard(ctx context.Context, st store.Stores, userID, userCardID uuid.UUID) (*domain.UserCard, error) {
	card, err := st.UserCards.GetByID(ctx, userID, userCardID)
	if err != nil {
		return nil, service.MapStoreError(err)
	}
	if card.Deleted {
		return nil, domain.ErrUserCardNotFound
	}
	return card, nil
}
