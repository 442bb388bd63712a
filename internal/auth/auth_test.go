package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T, password string) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return New(config.AuthConfig{
		JWTSecret:         "test-secret",
		AdminPasswordHash: string(hash),
		AdminUsername:     "admin",
		TokenTTL:          time.Hour,
	})
}

func TestLogin(t *testing.T) {
	a := newTestAuthenticator(t, "s3cret")

	token, err := a.Login("s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	for _, bad := range []string{"", "wrong"} {
		_, err := a.Login(bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "password %q", bad)
	}
}

func TestVerify_Expired(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return start }

	token, err := a.Issue()
	require.NoError(t, err)

	a.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	a := newTestAuthenticator(t, "pw")

	other := New(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	forged, err := other.Issue()
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "admin"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"no expiry":    noExp,
		"alg none":     none,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(config.AuthConfig{JWTSecret: "x"})
	assert.Equal(t, "admin", a.Username())
	assert.Equal(t, 24*time.Hour, a.ttl)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))

	_, err = HashPassword("")
	assert.Error(t, err)
}
