package domain

import (
	"time"
)

// SyncType identifies the external source that fills a user's dynamic deck.
type SyncType string

// Known sync source types. SyncTypeNone means no source is configured.
const (
	SyncTypeNone   SyncType = ""
	SyncTypeSheet  SyncType = "sheet"
	SyncTypeGemini SyncType = "gemini"
	SyncTypeNotion SyncType = "notion"
)

// Valid reports whether t is a known, configured source type.
func (t SyncType) Valid() bool {
	switch t {
	case SyncTypeSheet, SyncTypeGemini, SyncTypeNotion:
		return true
	default:
		return false
	}
}

// DefaultSyncErrorStatus is recorded when a failed sync has no usable message.
const DefaultSyncErrorStatus = "Sync error"

// SyncPolicy bounds how often a user may sync.
type SyncPolicy struct {
	// AttemptLimit is the number of attempts allowed inside one cooldown window.
	AttemptLimit int
	// Cooldown is measured from the oldest recorded attempt.
	Cooldown time.Duration
}

// SyncPhase is the derived state of a user's sync machinery.
type SyncPhase string

// Sync phases
const (
	SyncPhaseIdle        SyncPhase = "idle"
	SyncPhaseCoolingDown SyncPhase = "cooling_down"
	SyncPhaseRateLimited SyncPhase = "rate_limited"
	SyncPhaseDisabled    SyncPhase = "disabled"
)

// SyncState is the per-user sync configuration and attempt bookkeeping.
//
// All transitions are value methods returning the next state, so callers
// decide when the result is persisted.
type SyncState struct {
	Type       SyncType    `json:"type"`
	Descriptor string      `json:"descriptor"`
	AutoSync   bool        `json:"auto_sync"`
	Status     string      `json:"status"`
	Failed     bool        `json:"failed"`
	Attempts   []time.Time `json:"attempts"`
}

// Configured returns ErrSyncTypeUndefined or ErrSyncLinkUndefined when the
// source is not fully configured.
func (s SyncState) Configured() error {
	if s.Type == SyncTypeNone {
		return ErrSyncTypeUndefined
	}
	if s.Descriptor == "" {
		return ErrSyncLinkUndefined
	}
	return nil
}

// Expired reports whether the oldest recorded attempt is older than the
// cooldown window.
func (s SyncState) Expired(now time.Time, policy SyncPolicy) bool {
	if len(s.Attempts) == 0 {
		return false
	}
	return now.Sub(s.Attempts[0]) > policy.Cooldown
}

// Reset clears the attempt list and any stale status.
func (s SyncState) Reset() SyncState {
	s.Attempts = []time.Time{}
	s.Status = ""
	s.Failed = false
	return s
}

// BeginAttempt applies the cooldown reset, enforces the attempt cap and
// records a new attempt at now. On ErrTooManyAttempts the returned state is
// the (possibly reset) state without the new attempt.
func (s SyncState) BeginAttempt(now time.Time, policy SyncPolicy) (SyncState, error) {
	if s.Expired(now, policy) {
		s = s.Reset()
	}
	if len(s.Attempts) >= policy.AttemptLimit {
		return s, ErrTooManyAttempts
	}

	attempts := make([]time.Time, len(s.Attempts), len(s.Attempts)+1)
	copy(attempts, s.Attempts)
	s.Attempts = append(attempts, now)
	return s, nil
}

// Succeed records a successful sync finished at now.
func (s SyncState) Succeed(now time.Time) SyncState {
	s.Status = "Last synced at " + now.UTC().Format(time.RFC1123)
	s.Failed = false
	return s
}

// Fail records a failed sync and turns automatic syncing off.
func (s SyncState) Fail(message string) SyncState {
	if message == "" {
		message = DefaultSyncErrorStatus
	}
	s.Status = message
	s.Failed = true
	s.AutoSync = false
	return s
}

// Phase derives the current phase at now.
func (s SyncState) Phase(now time.Time, policy SyncPolicy) SyncPhase {
	expired := s.Expired(now, policy)
	switch {
	case !expired && len(s.Attempts) >= policy.AttemptLimit:
		return SyncPhaseRateLimited
	case s.Failed && !s.AutoSync:
		return SyncPhaseDisabled
	case !expired && len(s.Attempts) > 0:
		return SyncPhaseCoolingDown
	default:
		return SyncPhaseIdle
	}
}
