package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"Validation", NewValidationError("bad"), http.StatusBadRequest},
		{"Not Found Answers Bad Request", NewNotFoundError("Quote", 1), http.StatusBadRequest},
		{"Unauthorized", NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"Conflict", NewConflictError("taken"), http.StatusConflict},
		{"Internal", NewInternalError(errors.New("db down")), http.StatusInternalServerError},
		{"Wrapped", fmt.Errorf("outer: %w", NewConflictError("taken")), http.StatusConflict},
		{"Plain Error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.err))
		})
	}
}

func TestAppError_Message(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternalError(cause)

	assert.Equal(t, "Internal server error: db down", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Quote with ID 7 not found", NewNotFoundError("Quote", 7).Error())
	assert.True(t, HasCode(NewNotFoundMessage("Vote not found"), CodeNotFound))
	assert.False(t, HasCode(errors.New("x"), CodeNotFound))
}

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expected       ErrorResponse
	}{
		{
			name:           "App Error",
			err:            NewValidationError("text is required"),
			expectedStatus: http.StatusBadRequest,
			expected:       ErrorResponse{Error: "text is required", Code: CodeValidation},
		},
		{
			name:           "Internal Hides Cause",
			err:            NewInternalError(errors.New("password=hunter2")),
			expectedStatus: http.StatusInternalServerError,
			expected:       ErrorResponse{Error: "Internal server error", Code: CodeInternal},
		},
		{
			name:           "Unknown Error",
			err:            errors.New("raw driver error"),
			expectedStatus: http.StatusInternalServerError,
			expected:       ErrorResponse{Error: "Internal server error", Code: CodeInternal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return RespondWithAppError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expected, body)
		})
	}
}
