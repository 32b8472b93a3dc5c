// Package sheets implements the sheet sync source over the Google Sheets
// values API. Each row becomes one candidate card:
//
//	A: external id | B: front | C: front secondary | D: back | E: back secondary
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/source"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ErrInvalidDescriptor is returned when a descriptor names no spreadsheet.
var ErrInvalidDescriptor = errors.New("invalid spreadsheet descriptor")

var (
	spreadsheetURLRegex = regexp.MustCompile(`/spreadsheets/d/([A-Za-z0-9_-]+)`)
	spreadsheetIDRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

var _ source.Fetcher = (*Fetcher)(nil)

// Fetcher reads candidate cards from a spreadsheet.
type Fetcher struct {
	values  *gsheets.SpreadsheetsValuesService
	timeout time.Duration
	rng     string
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher authenticated by API key against
// cfg.BaseURL. timeout bounds every fetch.
func NewFetcher(ctx context.Context, cfg config.SheetsConfig, timeout time.Duration, logger *slog.Logger) (*Fetcher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sheets API key cannot be empty")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid sheets base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := gsheets.NewService(ctx,
		option.WithAPIKey(cfg.APIKey),
		option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &Fetcher{
		values:  svc.Spreadsheets.Values,
		timeout: timeout,
		rng:     cfg.Range,
		logger:  logger.With(slog.String("component", "sheets_fetcher")),
	}, nil
}

// SpreadsheetID extracts the spreadsheet id from a bare id or a sharing URL.
func SpreadsheetID(descriptor string) (string, error) {
	descriptor = strings.TrimSpace(descriptor)
	if m := spreadsheetURLRegex.FindStringSubmatch(descriptor); m != nil {
		return m[1], nil
	}
	if spreadsheetIDRegex.MatchString(descriptor) {
		return descriptor, nil
	}
	return "", ErrInvalidDescriptor
}

// FetchCandidates implements source.Fetcher.
func (f *Fetcher) FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error) {
	log := logger.FromContextOrDefault(ctx, f.logger)

	id, err := SpreadsheetID(descriptor)
	if err != nil {
		return nil, source.NewFetchError(domain.SyncTypeSheet, "cannot read descriptor", err)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.values.Get(id, f.rng).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, source.NewFetchError(domain.SyncTypeSheet,
				fmt.Sprintf("unexpected status %d", apiErr.Code), nil)
		}
		return nil, source.NewFetchError(domain.SyncTypeSheet, "request failed", err)
	}

	candidates := rowsToCandidates(resp.Values)
	log.Debug("fetched sheet rows",
		slog.String("spreadsheet_id", id),
		slog.Int("rows", len(resp.Values)),
		slog.Int("candidates", len(candidates)))
	return candidates, nil
}

// rowsToCandidates maps rows to candidates, skipping rows with no content.
// Missing trailing cells are empty, as the API omits them.
func rowsToCandidates(rows [][]interface{}) []domain.CandidateCard {
	out := make([]domain.CandidateCard, 0, len(rows))
	for _, row := range rows {
		c := domain.CandidateCard{
			ExternalID:     cell(row, 0),
			FrontPrimary:   cell(row, 1),
			FrontSecondary: cell(row, 2),
			BackPrimary:    cell(row, 3),
			BackSecondary:  cell(row, 4),
		}
		if c.FrontPrimary == "" && c.BackPrimary == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
