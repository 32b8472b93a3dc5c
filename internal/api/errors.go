package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-decks/internal/api/shared"
	"github.com/phrazzld/scry-decks/internal/domain"
)

// errUnauthenticated is reported when a protected handler runs without a
// user id in the context.
var errUnauthenticated = errors.New("request is not authenticated")

// MapErrorToStatusCode maps the domain error taxonomy to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrValidation), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// safeMessages are the client facing messages of specific domain errors.
var safeMessages = []struct {
	err     error
	message string
}{
	{domain.ErrUserCardNotFound, "Card not found"},
	{domain.ErrCardNotFound, "Card not found"},
	{domain.ErrUserDeckNotFound, "Deck not found"},
	{domain.ErrDeckNotFound, "Deck not found"},
	{domain.ErrSettingsNotFound, "Settings not found"},
	{domain.ErrNotReviewable, "Card is not reviewable yet"},
	{domain.ErrDynamicDeckAlreadyExists, "Dynamic deck already exists"},
	{domain.ErrDynamicDeckNotDeletable, "Dynamic deck cannot be deleted"},
	{domain.ErrDynamicDeckMissing, "Dynamic deck does not exist"},
	{domain.ErrSyncTypeUndefined, "Sync type is not configured"},
	{domain.ErrSyncLinkUndefined, "Sync link is not configured"},
	{domain.ErrDeckAlreadyBound, "Deck is already in your collection"},
	{domain.ErrDeckNotImportable, "Dynamic decks cannot be imported"},
	{domain.ErrTooManyAttempts, "Too many sync attempts, try again later"},
	{domain.ErrInvalidOutcome, "Invalid outcome"},
	{domain.ErrInvalidDirection, "Invalid direction"},
	{domain.ErrInvalidSyncType, "Invalid sync type"},
}

// GetSafeErrorMessage returns a client facing message for err that never
// includes wrapped internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	for _, m := range safeMessages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return SanitizeValidationError(verrs)
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Invalid %s", verr.Field)
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return "User ID not found or invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "Not found"
	case errors.Is(err, domain.ErrInvalidState):
		return "Operation not allowed in the current state"
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests"
	case errors.Is(err, domain.ErrValidation):
		return "Validation error"
	case errors.Is(err, domain.ErrUpstreamFailure):
		return "Content source unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field.
func SanitizeValidationError(verrs validator.ValidationErrors) string {
	if len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid id"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err. fallback, when
// non-empty, replaces the message of unexpected (5xx) errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
