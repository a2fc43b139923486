package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-1234"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	id := Identity{UserID: uuid.New(), Username: "alice"}

	token, err := m.Issue(id)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute)
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(Identity{UserID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": uuid.NewString(),
			"iss": Issuer,
			"aud": Audience,
			"exp": now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret"), valid())},
		{"wrong issuer", func() string { c := valid(); c["iss"] = "someone-else"; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"wrong audience", func() string { c := valid(); c["aud"] = "other-client"; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"missing expiry", func() string { c := valid(); delete(c, "exp"); return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"non-uuid subject", func() string { c := valid(); c["sub"] = "42"; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"other hmac size", sign(jwt.SigningMethodHS512, []byte(testSecret), valid())},
		{"unsigned", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_IssueWithoutSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour).Issue(Identity{UserID: uuid.New()})
	assert.Error(t, err)
}
