package srs

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
)

// Params defines all configurable parameters for the interval model
type Params struct {
	// Intervals maps each outcome to its interval table. Entry i is used when
	// the trailing streak of that outcome is i; longer streaks reuse the last entry.
	Intervals map[domain.Outcome][]time.Duration
}

// ParamsConfig allows overriding the default tables when creating a new Params instance.
// A nil or empty slice keeps the default table for that outcome.
type ParamsConfig struct {
	HardIntervals   []time.Duration
	MediumIntervals []time.Duration
	EasyIntervals   []time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Intervals: map[domain.Outcome][]time.Duration{
			// Hard cards come back within the hour regardless of streak
			domain.OutcomeHard: {
				time.Hour,
			},
			domain.OutcomeMedium: {
				6 * time.Hour,
				24 * time.Hour,
			},
			// Easy cards back off over two months
			domain.OutcomeEasy: {
				24 * time.Hour,
				3 * 24 * time.Hour,
				7 * 24 * time.Hour,
				14 * 24 * time.Hour,
				30 * 24 * time.Hour,
				60 * 24 * time.Hour,
			},
		},
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if len(config.HardIntervals) > 0 {
		params.Intervals[domain.OutcomeHard] = cloneTable(config.HardIntervals)
	}
	if len(config.MediumIntervals) > 0 {
		params.Intervals[domain.OutcomeMedium] = cloneTable(config.MediumIntervals)
	}
	if len(config.EasyIntervals) > 0 {
		params.Intervals[domain.OutcomeEasy] = cloneTable(config.EasyIntervals)
	}

	return params
}

// Validate checks that every outcome has a non-empty, strictly increasing
// table of positive durations.
func (p *Params) Validate() error {
	for _, outcome := range []domain.Outcome{domain.OutcomeHard, domain.OutcomeMedium, domain.OutcomeEasy} {
		table, ok := p.Intervals[outcome]
		if !ok || len(table) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyIntervalTable, outcome)
		}
		for i, d := range table {
			if d <= 0 {
				return fmt.Errorf("%w: %s[%d] must be positive", ErrInvalidIntervalTable, outcome, i)
			}
			if i > 0 && d <= table[i-1] {
				return fmt.Errorf("%w: %s[%d] must be greater than %s[%d]",
					ErrInvalidIntervalTable, outcome, i, outcome, i-1)
			}
		}
	}
	return nil
}

func cloneTable(table []time.Duration) []time.Duration {
	out := make([]time.Duration, len(table))
	copy(out, table)
	return out
}
