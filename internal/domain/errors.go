package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy roots. Every domain error wraps exactly one of these so that
// callers (and the API layer) can classify failures with errors.Is.
var (
	// ErrNotFound is returned when an entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is not allowed in the
	// entity's current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrRateLimited is returned when an operation was rejected by an attempt cap.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamFailure is returned when an external content source fails or
	// returns a malformed payload.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")
)

// Not found errors.
var (
	ErrCardNotFound     = fmt.Errorf("%w: card", ErrNotFound)
	ErrDeckNotFound     = fmt.Errorf("%w: deck", ErrNotFound)
	ErrUserCardNotFound = fmt.Errorf("%w: user card", ErrNotFound)
	ErrUserDeckNotFound = fmt.Errorf("%w: user deck", ErrNotFound)
	ErrSettingsNotFound = fmt.Errorf("%w: settings", ErrNotFound)
)

// Invalid state errors.
var (
	// ErrNotReviewable is returned when a card is reviewed before its ShowAfter time.
	ErrNotReviewable = fmt.Errorf("%w: card is not reviewable yet", ErrInvalidState)

	// ErrDynamicDeckAlreadyExists is returned when a user already owns a dynamic deck.
	ErrDynamicDeckAlreadyExists = fmt.Errorf("%w: dynamic deck already exists", ErrInvalidState)

	// ErrDynamicDeckNotDeletable is returned when a user deletes their dynamic
	// deck. A user has at most one dynamic deck over their lifetime.
	ErrDynamicDeckNotDeletable = fmt.Errorf("%w: dynamic deck cannot be deleted", ErrInvalidState)

	// ErrDynamicDeckMissing is returned when a sync operation needs a dynamic deck
	// and the user has none.
	ErrDynamicDeckMissing = fmt.Errorf("%w: dynamic deck does not exist", ErrInvalidState)

	// ErrSyncTypeUndefined is returned when no sync source type is configured.
	ErrSyncTypeUndefined = fmt.Errorf("%w: sync type is not configured", ErrInvalidState)

	// ErrSyncLinkUndefined is returned when no sync source descriptor is configured.
	ErrSyncLinkUndefined = fmt.Errorf("%w: sync link is not configured", ErrInvalidState)

	// ErrDeckAlreadyBound is returned when a user binds the same deck twice.
	ErrDeckAlreadyBound = fmt.Errorf("%w: deck is already in the user's collection", ErrInvalidState)

	// ErrDeckNotImportable is returned when a dynamic deck is bound through import.
	ErrDeckNotImportable = fmt.Errorf("%w: dynamic decks cannot be imported", ErrInvalidState)
)

// ErrTooManyAttempts is returned when the sync attempt cap is reached inside
// the cooldown window.
var ErrTooManyAttempts = fmt.Errorf("%w: too many sync attempts", ErrRateLimited)

// Validation errors.
var (
	ErrInvalidOutcome   = fmt.Errorf("%w: invalid review outcome", ErrValidation)
	ErrInvalidDirection = fmt.Errorf("%w: invalid move direction", ErrValidation)
	ErrInvalidSyncType  = fmt.Errorf("%w: unknown sync type", ErrValidation)
	ErrEmptyID          = fmt.Errorf("%w: id cannot be empty", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: card content cannot be empty", ErrValidation)
)

// ValidationError describes a validation failure on a single field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrValidation is wrapped.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
