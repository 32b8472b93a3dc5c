// Package source defines the Fetcher capability that supplies candidate cards
// to a user's dynamic deck, and a registry dispatching on the sync source type.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/scry-decks/internal/domain"
)

// ErrSourceNotImplemented is returned for source types that have no fetcher.
var ErrSourceNotImplemented = errors.New("source type not implemented")

// Fetcher retrieves candidate cards for a source descriptor, such as a
// spreadsheet id or a topic. Failures are reported as *FetchError.
type Fetcher interface {
	FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, descriptor string) ([]domain.CandidateCard, error)

// FetchCandidates calls f.
func (f FetchFunc) FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error) {
	return f(ctx, descriptor)
}

// FetchError is a source-specific fetch failure. It matches
// domain.ErrUpstreamFailure with errors.Is.
type FetchError struct {
	Source  domain.SyncType
	Message string
	Err     error
}

// NewFetchError creates a FetchError.
func NewFetchError(src domain.SyncType, message string, err error) *FetchError {
	return &FetchError{Source: src, Message: message, Err: err}
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s source: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s source: %s", e.Source, e.Message)
}

// Unwrap exposes both the upstream failure root and the cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrUpstreamFailure}
	}
	return []error{domain.ErrUpstreamFailure, e.Err}
}
