package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/source"
	"google.golang.org/genai"
)

// DefaultMaxCards is the number of cards requested per sync.
const DefaultMaxCards = 20

const promptText = `You are building flashcards for spaced repetition.
Write at most {{.MaxCards}} flashcards about the following topic:

{{.Topic}}

Reply with JSON only, in the form
{"cards": [{"front": "...", "front_secondary": "...", "back": "...", "back_secondary": "..."}]}
where front is a short question, back is its answer, and the secondary
fields are optional hints. Do not repeat questions.`

var promptTemplate = template.Must(template.New("flashcards").Parse(promptText))

var _ source.Fetcher = (*Fetcher)(nil)

// Fetcher generates candidate cards with a Gemini model.
type Fetcher struct {
	generator contentGenerator
	model     string
	maxCards  int
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher backed by a Gemini API client.
func NewFetcher(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newFetcher(client.Models, cfg.ModelName, logger), nil
}

func newFetcher(generator contentGenerator, model string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		generator: generator,
		model:     model,
		maxCards:  DefaultMaxCards,
		logger:    logger.With(slog.String("component", "gemini_fetcher")),
	}
}

// ExternalID derives a stable id from a card's front text.
func ExternalID(front string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(front), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// FetchCandidates implements source.Fetcher. descriptor is the topic.
func (f *Fetcher) FetchCandidates(ctx context.Context, descriptor string) ([]domain.CandidateCard, error) {
	topic := strings.TrimSpace(descriptor)
	if topic == "" {
		return nil, source.NewFetchError(domain.SyncTypeGemini, "cannot build prompt", ErrEmptyTopic)
	}

	var prompt bytes.Buffer
	if err := promptTemplate.Execute(&prompt, promptData{Topic: topic, MaxCards: f.maxCards}); err != nil {
		return nil, source.NewFetchError(domain.SyncTypeGemini, "cannot build prompt", err)
	}

	f.logger.InfoContext(ctx, "Requesting cards from Gemini",
		"model", f.model,
		"topic_length", len(topic))

	resp, err := f.generator.GenerateContent(ctx, f.model, genai.Text(prompt.String()),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, source.NewFetchError(domain.SyncTypeGemini, "request failed", err)
	}

	schema, err := parseResponse(resp)
	if err != nil {
		return nil, source.NewFetchError(domain.SyncTypeGemini, "cannot use response", err)
	}

	candidates := make([]domain.CandidateCard, 0, len(schema.Cards))
	for i, c := range schema.Cards {
		front, back := strings.TrimSpace(c.Front), strings.TrimSpace(c.Back)
		if front == "" || back == "" {
			f.logger.DebugContext(ctx, "Skipping incomplete card", "index", i)
			continue
		}
		candidates = append(candidates, domain.CandidateCard{
			ExternalID:     ExternalID(front),
			FrontPrimary:   front,
			FrontSecondary: strings.TrimSpace(c.FrontSecondary),
			BackPrimary:    back,
			BackSecondary:  strings.TrimSpace(c.BackSecondary),
		})
	}
	if len(candidates) == 0 {
		return nil, source.NewFetchError(domain.SyncTypeGemini, "cannot use response",
			fmt.Errorf("%w: no usable cards", ErrInvalidResponse))
	}

	f.logger.InfoContext(ctx, "Received cards from Gemini",
		"returned", len(schema.Cards),
		"usable", len(candidates))
	return candidates, nil
}

func parseResponse(resp *genai.GenerateContentResponse) (*ResponseSchema, error) {
	switch {
	case resp == nil:
		return nil, fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return nil, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return nil, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	var schema ResponseSchema
	if err := json.Unmarshal([]byte(text.String()), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	return &schema, nil
}
