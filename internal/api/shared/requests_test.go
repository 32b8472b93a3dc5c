package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moveBody struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func newBodyRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
}

func TestDecodeJSON(t *testing.T) {
	var body moveBody
	require.NoError(t, DecodeJSON(newBodyRequest(`{"direction":"up"}`), &body))
	assert.Equal(t, "up", body.Direction)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"direction":"up",}`},
		{"empty", ``},
		{"unknown field", `{"direction":"up","extra":1}`},
		{"two objects", `{"direction":"up"}{"direction":"down"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body moveBody
			assert.Error(t, DecodeJSON(newBodyRequest(tt.body), &body))
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	var body moveBody
	assert.NoError(t, DecodeAndValidate(newBodyRequest(`{"direction":"down"}`), &body))

	err := DecodeAndValidate(newBodyRequest(`{"direction":"sideways"}`), &body)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "oneof", verrs[0].Tag())

	err = DecodeAndValidate(newBodyRequest(`nope`), &body)
	assert.ErrorContains(t, err, "invalid request body")
}

type selfValidating struct {
	Name string `json:"name"`
}

func (s *selfValidating) Validate() error {
	if s.Name == "" {
		return assert.AnError
	}
	return nil
}

func TestValidateRequest_UsesValidateMethod(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(&selfValidating{}), assert.AnError)
	assert.NoError(t, ValidateRequest(&selfValidating{Name: "x"}))
}
