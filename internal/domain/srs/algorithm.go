package srs

import (
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
)

// Streak counts the trailing run of history entries whose outcome equals outcome.
//
// The walk starts at the most recent entry and stops at the first mismatch, so
// the result is 0 when history is empty or its last entry has a different
// outcome. history is never modified.
func Streak(outcome domain.Outcome, history []domain.HistoryEntry) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Outcome != outcome {
			break
		}
		streak++
	}
	return streak
}

// NextShowTime computes when a card reviewed with outcome becomes eligible again.
//
// Parameters:
//   - outcome: The outcome being recorded now
//   - history: The card's history before this outcome is appended
//   - now: The review time
//   - params: Interval tables
//
// Returns:
//   - now + table[min(streak, len(table)-1)] for the outcome's table
//   - ErrInvalidOutcome when the outcome has no table
//   - ErrEmptyIntervalTable when the outcome's table is empty
//
// Algorithm behavior:
//   - A streak longer than the table reuses the last interval; the
//     schedule never grows past the table's ceiling
//   - A different outcome breaks the streak and restarts at table[0]
func NextShowTime(
	outcome domain.Outcome,
	history []domain.HistoryEntry,
	now time.Time,
	params *Params,
) (time.Time, error) {
	table, ok := params.Intervals[outcome]
	if !ok {
		return time.Time{}, ErrInvalidOutcome
	}
	if len(table) == 0 {
		return time.Time{}, ErrEmptyIntervalTable
	}

	idx := Streak(outcome, history)
	if idx > len(table)-1 {
		idx = len(table) - 1
	}

	return now.Add(table[idx]), nil
}
