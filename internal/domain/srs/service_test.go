package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultService(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	require.NotNil(t, service)

	defaultSvc, ok := service.(*defaultService)
	require.True(t, ok, "Expected *defaultService type")
	assert.NotNil(t, defaultSvc.params)
}

func TestNewServiceWithParams(t *testing.T) {
	t.Parallel()

	_, err := NewServiceWithParams(nil)
	assert.Error(t, err)

	broken := NewDefaultParams()
	broken.Intervals[domain.OutcomeEasy] = []time.Duration{time.Hour, time.Minute}
	_, err = NewServiceWithParams(broken)
	assert.ErrorIs(t, err, ErrInvalidIntervalTable)

	svc, err := NewServiceWithParams(NewParams(ParamsConfig{HardIntervals: []time.Duration{time.Minute}}))
	require.NoError(t, err)
	now := time.Now().UTC()
	next, err := svc.NextShowTime(domain.OutcomeHard, nil, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), next)
}

func TestApplyOutcome(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	card := &domain.UserCard{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		CardID:    uuid.New(),
		ShowAfter: now.Add(-time.Minute),
		History:   history(domain.OutcomeMedium),
	}

	updated, err := service.ApplyOutcome(card, domain.OutcomeMedium, now)
	require.NoError(t, err)

	assert.Len(t, updated.History, 2)
	assert.Equal(t, domain.HistoryEntry{Outcome: domain.OutcomeMedium, At: now}, updated.History[1])
	assert.Equal(t, now.Add(24*time.Hour), updated.ShowAfter)
	assert.Equal(t, now, updated.UpdatedAt)

	// Original is untouched
	assert.Len(t, card.History, 1)
	assert.Equal(t, now.Add(-time.Minute), card.ShowAfter)
}

func TestApplyOutcome_Errors(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()

	_, err := service.ApplyOutcome(nil, domain.OutcomeEasy, time.Now())
	assert.ErrorIs(t, err, ErrNilCard)

	_, err = service.ApplyOutcome(&domain.UserCard{}, "good", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}
