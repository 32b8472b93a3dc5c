package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Compile-time checks
var (
	_ store.CardStore     = (*CardStore)(nil)
	_ store.DeckStore     = (*DeckStore)(nil)
	_ store.UserCardStore = (*UserCardStore)(nil)
	_ store.UserDeckStore = (*UserDeckStore)(nil)
	_ store.SettingsStore = (*SettingsStore)(nil)
)

// CardStore implements store.CardStore.
type CardStore struct {
	r    *Repository
	inTx bool
}

func (s *CardStore) ListByDeck(_ context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	ids := s.r.st.deckCards[deckID]
	out := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		c := s.r.st.cards[id]
		out = append(out, &c)
	}
	return out, nil
}

func (s *CardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	c, ok := s.r.st.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return &c, nil
}

func (s *CardStore) CreateMultiple(_ context.Context, cards []*domain.Card) error {
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return store.NewStoreError("card", "create", "invalid card", err)
		}
	}

	defer s.r.lockWrite(s.inTx)()

	// Check all constraints before writing so a failure leaves nothing behind.
	seen := make(map[uuid.UUID]map[string]struct{})
	for _, c := range cards {
		if _, ok := s.r.st.decks[c.DeckID]; !ok {
			return store.NewStoreError("card", "create", "unknown deck", store.ErrDeckNotFound)
		}
		if c.ExternalID == "" {
			continue
		}
		if seen[c.DeckID] == nil {
			seen[c.DeckID] = s.externalIDsLocked(c.DeckID)
		}
		if _, dup := seen[c.DeckID][c.ExternalID]; dup {
			return store.NewStoreError("card", "create", "duplicate external id", store.ErrExternalIDExists)
		}
		seen[c.DeckID][c.ExternalID] = struct{}{}
	}

	for _, c := range cards {
		s.r.st.cards[c.ID] = *c
		s.r.st.deckCards[c.DeckID] = append(s.r.st.deckCards[c.DeckID], c.ID)
	}
	return nil
}

func (s *CardStore) externalIDsLocked(deckID uuid.UUID) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, id := range s.r.st.deckCards[deckID] {
		if ext := s.r.st.cards[id].ExternalID; ext != "" {
			ids[ext] = struct{}{}
		}
	}
	return ids
}

// DeckStore implements store.DeckStore.
type DeckStore struct {
	r    *Repository
	inTx bool
}

func (s *DeckStore) Create(_ context.Context, deck *domain.Deck) error {
	defer s.r.lockWrite(s.inTx)()

	if _, ok := s.r.st.decks[deck.ID]; ok {
		return store.NewStoreError("deck", "create", "id already used", store.ErrDuplicate)
	}
	s.r.st.decks[deck.ID] = *deck
	return nil
}

func (s *DeckStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Deck, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	d, ok := s.r.st.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	return &d, nil
}

// UserCardStore implements store.UserCardStore.
type UserCardStore struct {
	r    *Repository
	inTx bool
}

func (s *UserCardStore) CreateMultiple(_ context.Context, cards []*domain.UserCard) error {
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return store.NewStoreError("user_card", "create", "invalid user card", err)
		}
	}

	defer s.r.lockWrite(s.inTx)()

	for _, c := range cards {
		if _, ok := s.r.st.userCards[c.ID]; ok {
			return store.NewStoreError("user_card", "create", "id already used", store.ErrDuplicate)
		}
		if _, ok := s.r.st.cards[c.CardID]; !ok {
			return store.NewStoreError("user_card", "create", "unknown card", store.ErrCardNotFound)
		}
		if _, ok := s.r.st.userDecks[c.UserDeckID]; !ok {
			return store.NewStoreError("user_card", "create", "unknown user deck", store.ErrUserDeckNotFound)
		}
	}

	for _, c := range cards {
		s.r.st.seq++
		s.r.st.userCards[c.ID] = copyUserCard(*c)
		s.r.st.userCardSeq[c.ID] = s.r.st.seq
	}
	return nil
}

func (s *UserCardStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.UserCard, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	c, ok := s.r.st.userCards[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrUserCardNotFound
	}
	return s.withCardLocked(c), nil
}

func (s *UserCardStore) Update(_ context.Context, card *domain.UserCard) error {
	defer s.r.lockWrite(s.inTx)()

	existing, ok := s.r.st.userCards[card.ID]
	if !ok || existing.UserID != card.UserID {
		return store.ErrUserCardNotFound
	}

	existing.Deleted = card.Deleted
	existing.Favorite = card.Favorite
	existing.ShowAfter = card.ShowAfter
	existing.History = card.History
	existing.UpdatedAt = card.UpdatedAt
	s.r.st.userCards[card.ID] = copyUserCard(existing)
	return nil
}

func (s *UserCardStore) FindUnreviewed(_ context.Context, userID uuid.UUID, limit int) ([]*domain.UserCard, error) {
	return s.find(userID, limit, func(c domain.UserCard) bool {
		return len(c.History) == 0
	}, s.bySeq)
}

func (s *UserCardStore) FindDue(_ context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.UserCard, error) {
	return s.find(userID, limit, func(c domain.UserCard) bool {
		return len(c.History) > 0 && !c.ShowAfter.After(now)
	}, func(a, b domain.UserCard) bool {
		if !a.ShowAfter.Equal(b.ShowAfter) {
			return a.ShowAfter.Before(b.ShowAfter)
		}
		return s.bySeq(a, b)
	})
}

func (s *UserCardStore) ActiveCardIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	ids := make(map[uuid.UUID]struct{})
	for _, c := range s.r.st.userCards {
		if c.UserID == userID && !c.Deleted {
			ids[c.CardID] = struct{}{}
		}
	}
	return ids, nil
}

func (s *UserCardStore) SoftDeleteByUserDeck(_ context.Context, userID, userDeckID uuid.UUID) (int, error) {
	defer s.r.lockWrite(s.inTx)()

	n := 0
	for id, c := range s.r.st.userCards {
		if c.UserID == userID && c.UserDeckID == userDeckID && !c.Deleted {
			c.Deleted = true
			s.r.st.userCards[id] = c
			n++
		}
	}
	return n, nil
}

// bySeq orders records by insertion; callers hold the read lock.
func (s *UserCardStore) bySeq(a, b domain.UserCard) bool {
	return s.r.st.userCardSeq[a.ID] < s.r.st.userCardSeq[b.ID]
}

func (s *UserCardStore) find(
	userID uuid.UUID,
	limit int,
	match func(domain.UserCard) bool,
	less func(a, b domain.UserCard) bool,
) ([]*domain.UserCard, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	var hits []domain.UserCard
	for _, c := range s.r.st.userCards {
		if c.UserID == userID && !c.Deleted && match(c) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return less(hits[i], hits[j]) })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]*domain.UserCard, 0, len(hits))
	for _, c := range hits {
		out = append(out, s.withCardLocked(c))
	}
	return out, nil
}

func (s *UserCardStore) withCardLocked(c domain.UserCard) *domain.UserCard {
	out := copyUserCard(c)
	if card, ok := s.r.st.cards[c.CardID]; ok {
		out.Card = &card
	}
	return &out
}

// UserDeckStore implements store.UserDeckStore.
type UserDeckStore struct {
	r    *Repository
	inTx bool
}

func (s *UserDeckStore) Create(_ context.Context, deck *domain.UserDeck) error {
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("user_deck", "create", "invalid user deck", err)
	}

	defer s.r.lockWrite(s.inTx)()

	if _, ok := s.r.st.decks[deck.DeckID]; !ok {
		return store.NewStoreError("user_deck", "create", "unknown deck", store.ErrDeckNotFound)
	}
	for _, d := range s.r.st.userDecks {
		if d.ID == deck.ID {
			return store.NewStoreError("user_deck", "create", "id already used", store.ErrDuplicate)
		}
		if deck.Dynamic && d.Dynamic && d.UserID == deck.UserID && !d.Deleted {
			return store.NewStoreError("user_deck", "create", "second dynamic deck", store.ErrDynamicDeckExists)
		}
	}
	s.r.st.userDecks[deck.ID] = *deck
	return nil
}

func (s *UserDeckStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.UserDeck, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	d, ok := s.r.st.userDecks[id]
	if !ok || d.UserID != userID {
		return nil, store.ErrUserDeckNotFound
	}
	return &d, nil
}

func (s *UserDeckStore) Update(_ context.Context, deck *domain.UserDeck) error {
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("user_deck", "update", "invalid user deck", err)
	}

	defer s.r.lockWrite(s.inTx)()

	existing, ok := s.r.st.userDecks[deck.ID]
	if !ok || existing.UserID != deck.UserID {
		return store.ErrUserDeckNotFound
	}

	existing.Order = deck.Order
	existing.Enabled = deck.Enabled
	existing.Deleted = deck.Deleted
	existing.CardsCount = deck.CardsCount
	existing.CardsLearned = deck.CardsLearned
	existing.UpdatedAt = deck.UpdatedAt
	s.r.st.userDecks[deck.ID] = existing
	return nil
}

func (s *UserDeckStore) ListActive(_ context.Context, userID uuid.UUID) ([]*domain.UserDeck, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	var out []*domain.UserDeck
	for _, d := range s.r.st.userDecks {
		if d.UserID == userID && !d.Deleted {
			out = append(out, &d)
		}
	}
	domain.SortByOrder(out)
	return out, nil
}

func (s *UserDeckStore) FindDynamic(_ context.Context, userID uuid.UUID) (*domain.UserDeck, error) {
	return s.findOne(func(d domain.UserDeck) bool {
		return d.UserID == userID && d.Dynamic
	})
}

func (s *UserDeckStore) FindByDeck(_ context.Context, userID, deckID uuid.UUID) (*domain.UserDeck, error) {
	return s.findOne(func(d domain.UserDeck) bool {
		return d.UserID == userID && d.DeckID == deckID
	})
}

func (s *UserDeckStore) findOne(match func(domain.UserDeck) bool) (*domain.UserDeck, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	for _, d := range s.r.st.userDecks {
		if !d.Deleted && match(d) {
			return &d, nil
		}
	}
	return nil, store.ErrUserDeckNotFound
}

// SettingsStore implements store.SettingsStore.
type SettingsStore struct {
	r    *Repository
	inTx bool
}

func (s *SettingsStore) Get(_ context.Context, userID uuid.UUID) (*domain.Settings, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	st, ok := s.r.st.settings[userID]
	if !ok {
		return nil, store.ErrSettingsNotFound
	}
	st = copySettings(st)
	return &st, nil
}

func (s *SettingsStore) Upsert(_ context.Context, settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return store.NewStoreError("settings", "upsert", "invalid settings", err)
	}

	defer s.r.lockWrite(s.inTx)()

	s.r.st.settings[settings.UserID] = copySettings(*settings)
	return nil
}

func (s *SettingsStore) ListAutoSync(_ context.Context) ([]uuid.UUID, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	var ids []uuid.UUID
	for id, st := range s.r.st.settings {
		if st.Sync.AutoSync {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
