// Package memory provides an in-process implementation of store.Repository.
// It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
)

// state is everything the repository holds. Values are stored as private
// copies; nothing handed out by a store aliases it.
type state struct {
	decks       map[uuid.UUID]domain.Deck
	cards       map[uuid.UUID]domain.Card
	deckCards   map[uuid.UUID][]uuid.UUID
	userCards   map[uuid.UUID]domain.UserCard
	userCardSeq map[uuid.UUID]int64
	userDecks   map[uuid.UUID]domain.UserDeck
	settings    map[uuid.UUID]domain.Settings
	seq         int64
}

func newState() *state {
	return &state{
		decks:       make(map[uuid.UUID]domain.Deck),
		cards:       make(map[uuid.UUID]domain.Card),
		deckCards:   make(map[uuid.UUID][]uuid.UUID),
		userCards:   make(map[uuid.UUID]domain.UserCard),
		userCardSeq: make(map[uuid.UUID]int64),
		userDecks:   make(map[uuid.UUID]domain.UserDeck),
		settings:    make(map[uuid.UUID]domain.Settings),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.decks {
		c.decks[k] = v
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.deckCards {
		c.deckCards[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.userCards {
		c.userCards[k] = copyUserCard(v)
	}
	for k, v := range s.userCardSeq {
		c.userCardSeq[k] = v
	}
	for k, v := range s.userDecks {
		c.userDecks[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = copySettings(v)
	}
	return c
}

// Repository is a store.Repository kept entirely in memory.
//
// Transactions are serialized and rolled back by restoring a snapshot taken
// when the transaction began. A write made through Stores outside WithinTx
// waits for any open transaction, so a rollback never discards it.
type Repository struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

var _ store.Repository = (*Repository)(nil)

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{st: newState()}
}

// Stores implements store.Repository.
func (r *Repository) Stores() store.Stores {
	return r.stores(false)
}

func (r *Repository) stores(inTx bool) store.Stores {
	return store.Stores{
		Cards:     &CardStore{r: r, inTx: inTx},
		Decks:     &DeckStore{r: r, inTx: inTx},
		UserCards: &UserCardStore{r: r, inTx: inTx},
		UserDecks: &UserDeckStore{r: r, inTx: inTx},
		Settings:  &SettingsStore{r: r, inTx: inTx},
	}
}

// lockWrite takes the write lock and returns its release. Writes outside a
// transaction also hold txMu for their duration.
func (r *Repository) lockWrite(inTx bool) func() {
	if !inTx {
		r.txMu.Lock()
	}
	r.mu.Lock()
	return func() {
		r.mu.Unlock()
		if !inTx {
			r.txMu.Unlock()
		}
	}
}

// WithinTx implements store.Repository.
func (r *Repository) WithinTx(ctx context.Context, fn store.StoresFn) (err error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := r.st.clone()
	r.mu.RUnlock()

	rollback := func() {
		r.mu.Lock()
		r.st = snapshot
		r.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fn(ctx, r.stores(true)); err != nil {
		rollback()
		return err
	}
	return nil
}

func copyUserCard(c domain.UserCard) domain.UserCard {
	c.History = append([]domain.HistoryEntry{}, c.History...)
	c.Card = nil
	return c
}

func copySettings(s domain.Settings) domain.Settings {
	s.Sync.Attempts = append([]time.Time{}, s.Sync.Attempts...)
	return s
}
