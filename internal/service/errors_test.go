package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewServiceError("sync", "unexpected failure", cause)

	assert.Equal(t, "sync operation failed: unexpected failure: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewServiceError("sync", "nothing underneath", nil)
	assert.Equal(t, "sync operation failed: nothing underneath", bare.Error())
}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"user card", store.ErrUserCardNotFound, domain.ErrUserCardNotFound},
		{"user deck", fmt.Errorf("get: %w", store.ErrUserDeckNotFound), domain.ErrUserDeckNotFound},
		{"deck", store.ErrDeckNotFound, domain.ErrDeckNotFound},
		{"card", store.ErrCardNotFound, domain.ErrCardNotFound},
		{"settings", store.ErrSettingsNotFound, domain.ErrSettingsNotFound},
		{"generic not found", store.ErrNotFound, domain.ErrNotFound},
		{"dynamic deck", store.ErrDynamicDeckExists, domain.ErrDynamicDeckAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapStoreError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	other := errors.New("boom")
	assert.Same(t, other, MapStoreError(other))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))

	err := Wrap("move_deck", store.ErrUserDeckNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr), "domain errors pass through unwrapped")

	err = Wrap("sync", domain.ErrTooManyAttempts)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	cause := errors.New("disk full")
	err = Wrap("append_deck_order", cause)
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "append_deck_order", svcErr.Operation)
	assert.ErrorIs(t, err, cause)
}
