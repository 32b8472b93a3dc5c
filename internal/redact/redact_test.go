package redact_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/scry-decks/internal/redact"
	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no sensitive data",
			input:    "fetch failed",
			expected: "fetch failed",
		},
		{
			name:     "database connection string",
			input:    "connect postgres://user:pw@db:5432/scry",
			expected: "connect [REDACTED_CREDENTIAL]db:5432/scry",
		},
		{
			name:     "key in query string",
			input:    "status 403 for sheet?key=abc123&range=A1",
			expected: "status 403 for sheet?key=[REDACTED_KEY]&range=A1",
		},
		{
			name:     "token assignment",
			input:    "token=abcdefgh12345678 rejected",
			expected: "[REDACTED_KEY] rejected",
		},
		{
			name:     "JWT",
			input:    "bad token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.abc_def",
			expected: "bad token [REDACTED_JWT]",
		},
		{
			name:     "email address",
			input:    "user admin@example.com",
			expected: "user [REDACTED_EMAIL]",
		},
		{
			name:     "file path",
			input:    "open /etc/scry/config.yaml: no such file",
			expected: "open [REDACTED_PATH]: no such file",
		},
		{
			name:     "host and port",
			input:    "dial tcp sheets.googleapis.com:443: timeout",
			expected: "dial tcp [REDACTED_HOST]: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redact.String(tt.input))
		})
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "", redact.Error(nil))

	err := fmt.Errorf("sync: %w", errors.New("token=abcdefgh12345678"))
	assert.Equal(t, "sync: [REDACTED_KEY]", redact.Error(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Sync error", redact.Message(nil, "Sync error"))
	assert.Equal(t, "Sync error", redact.Message(errors.New(""), "Sync error"))
	assert.Equal(t, "upstream returned 500", redact.Message(errors.New("upstream returned 500"), "Sync error"))
}
