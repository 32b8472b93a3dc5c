package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Error handling principles:
//  1. Service methods return domain sentinel errors for expected conditions
//  2. Unexpected errors are wrapped in ServiceError with the failed operation
//  3. Callers use errors.Is/errors.As to check for specific error conditions
//  4. The API layer maps the domain taxonomy roots to HTTP status codes

// ServiceError wraps unexpected failures with the operation that produced them.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_active_cards", "sync")
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// MapStoreError translates store errors into the domain taxonomy. Errors it
// does not recognize are returned unchanged.
func MapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrUserCardNotFound):
		return domain.ErrUserCardNotFound
	case errors.Is(err, store.ErrUserDeckNotFound):
		return domain.ErrUserDeckNotFound
	case errors.Is(err, store.ErrDeckNotFound):
		return domain.ErrDeckNotFound
	case errors.Is(err, store.ErrCardNotFound):
		return domain.ErrCardNotFound
	case errors.Is(err, store.ErrSettingsNotFound):
		return domain.ErrSettingsNotFound
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, store.ErrDynamicDeckExists):
		return domain.ErrDynamicDeckAlreadyExists
	default:
		return err
	}
}

// IsDomainError reports whether err belongs to the domain taxonomy and can be
// returned to callers as is.
func IsDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrUpstreamFailure) ||
		errors.Is(err, domain.ErrValidation)
}

// Wrap maps err through MapStoreError and wraps anything outside the domain
// taxonomy in a ServiceError for operation.
func Wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	mapped := MapStoreError(err)
	if IsDomainError(mapped) {
		return mapped
	}
	return NewServiceError(operation, "unexpected failure", mapped)
}
