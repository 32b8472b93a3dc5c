package gemini

import (
	"context"

	"google.golang.org/genai"
)

// contentGenerator is the part of *genai.Models the fetcher uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// promptData is passed to the prompt template.
type promptData struct {
	Topic    string
	MaxCards int
}

// ResponseSchema is the JSON document the model is asked to produce.
type ResponseSchema struct {
	Cards []CardSchema `json:"cards"`
}

// CardSchema is one generated card.
type CardSchema struct {
	Front          string `json:"front"`
	FrontSecondary string `json:"front_secondary,omitempty"`
	Back           string `json:"back"`
	BackSecondary  string `json:"back_secondary,omitempty"`
}
