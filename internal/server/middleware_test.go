package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quotely/internal/auth"
	"quotely/internal/config"
	"quotely/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signed builds an HS256 token for alice, letting each case break one claim.
func signed(t *testing.T, secret string, userID uuid.UUID, edit func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      userID.String(),
		"username": "alice",
		"iss":      auth.Issuer,
		"aud":      auth.Audience,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	if edit != nil {
		edit(claims)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{
		config: &config.Config{JWTSecret: testSecret},
		tokens: auth.NewTokenManager(testSecret, time.Hour),
	}
	app := fiber.New()
	app.Get("/users/profile", s.AuthRequired(), func(c *fiber.Ctx) error {
		identity, ok := currentIdentity(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"userID": identity.UserID, "username": identity.Username})
	})

	userID := uuid.New()
	issued, err := s.tokens.Issue(auth.Identity{UserID: userID, Username: "alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		wantOK bool
	}{
		{"issued token", "Bearer " + issued, true},
		{"hand-signed token", "Bearer " + signed(t, testSecret, userID, nil), true},
		{"expired", "Bearer " + signed(t, testSecret, userID, func(c jwt.MapClaims) {
			c["exp"] = time.Now().Add(-time.Minute).Unix()
		}), false},
		{"foreign issuer", "Bearer " + signed(t, testSecret, userID, func(c jwt.MapClaims) { c["iss"] = "elsewhere" }), false},
		{"foreign audience", "Bearer " + signed(t, testSecret, userID, func(c jwt.MapClaims) { c["aud"] = "someone-else" }), false},
		{"subject not a uuid", "Bearer " + signed(t, testSecret, userID, func(c jwt.MapClaims) { c["sub"] = "alice" }), false},
		{"other secret", "Bearer " + signed(t, "not-the-server-secret-at-all-000000", userID, nil), false},
		{"no header", "", false},
		{"wrong scheme", "Token " + issued, false},
		{"empty bearer", "Bearer ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			if !tt.wantOK {
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, string(models.CodeUnauthorized), body.Code)
				return
			}

			require.Equal(t, http.StatusOK, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, userID.String(), body["userID"])
			assert.Equal(t, "alice", body["username"])
		})
	}
}

func TestRequireIdentity_WithoutAuthMiddleware(t *testing.T) {
	s, _ := newMockServer()
	app := fiber.New()
	app.Get("/users/profile", s.GetProfile)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/profile", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
