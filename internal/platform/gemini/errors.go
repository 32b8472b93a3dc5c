package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyTopic is returned when the sync descriptor holds no topic.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrInvalidResponse is returned when the API reply is not the expected
	// card list.
	ErrInvalidResponse = errors.New("invalid response from model")

	// ErrContentBlocked is returned when safety filters block the reply.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)
