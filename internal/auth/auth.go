// Package auth implements the single-administrator login of the matrix API.
//
// The password is checked against a bcrypt hash from configuration and a
// successful login yields an HS256 JWT carrying the username. Tokens are
// verified on every protected request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned by Login for a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned by Verify for a malformed, forged or expired token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the JWT claims issued by Login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator checks passwords and issues and verifies tokens.
type Authenticator struct {
	secret       []byte
	passwordHash []byte
	username     string
	ttl          time.Duration
	now          func() time.Time
}

// New builds an Authenticator from cfg.
func New(cfg config.AuthConfig) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}
	return &Authenticator{
		secret:       []byte(cfg.JWTSecret),
		passwordHash: []byte(cfg.AdminPasswordHash),
		username:     username,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Username returns the identity put into issued tokens.
func (a *Authenticator) Username() string {
	return a.username
}

// Login checks password and returns a signed token.
func (a *Authenticator) Login(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.Issue()
}

// Issue signs a fresh token for the administrator.
func (a *Authenticator) Issue() (string, error) {
	now := a.now()
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns its claims.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
