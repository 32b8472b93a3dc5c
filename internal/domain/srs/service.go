package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
)

// Common errors
var (
	// ErrInvalidOutcome wraps domain.ErrInvalidOutcome so callers can match either.
	ErrInvalidOutcome       = fmt.Errorf("srs: %w", domain.ErrInvalidOutcome)
	ErrEmptyIntervalTable   = errors.New("interval table is empty")
	ErrInvalidIntervalTable = errors.New("interval table is invalid")
	ErrNilCard              = errors.New("user card cannot be nil")
)

// Service defines the interface for interval model operations
type Service interface {
	// NextShowTime returns when a card with the given history may be shown
	// again after receiving outcome at now.
	NextShowTime(outcome domain.Outcome, history []domain.HistoryEntry, now time.Time) (time.Time, error)

	// ApplyOutcome returns a copy of card with the outcome appended to its
	// history and ShowAfter rescheduled. card itself is not modified.
	ApplyOutcome(card *domain.UserCard, outcome domain.Outcome, now time.Time) (*domain.UserCard, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new interval service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new interval service with custom parameters.
// The parameters are validated up front so a misconfigured table fails at startup.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, errors.New("params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
	}, nil
}

// NextShowTime implements the Service interface
func (s *defaultService) NextShowTime(
	outcome domain.Outcome,
	history []domain.HistoryEntry,
	now time.Time,
) (time.Time, error) {
	if !outcome.Valid() {
		return time.Time{}, ErrInvalidOutcome
	}
	return NextShowTime(outcome, history, now, s.params)
}

// ApplyOutcome implements the Service interface
func (s *defaultService) ApplyOutcome(
	card *domain.UserCard,
	outcome domain.Outcome,
	now time.Time,
) (*domain.UserCard, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	showAfter, err := s.NextShowTime(outcome, card.History, now)
	if err != nil {
		return nil, err
	}

	updated := *card
	updated.History = make([]domain.HistoryEntry, len(card.History), len(card.History)+1)
	copy(updated.History, card.History)
	updated.History = append(updated.History, domain.HistoryEntry{Outcome: outcome, At: now})
	updated.ShowAfter = showAfter
	updated.UpdatedAt = now

	return &updated, nil
}
