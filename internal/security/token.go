package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrEmptyToken   = errors.New("authorization token is required")
	ErrInvalidToken = errors.New("token is invalid")
)

// Claims is the subset of token claims lmsportal cares about.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (t *TokenManager) Generate(subject, email, role string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenManager) Verify(token string) (Claims, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Claims{}, ErrEmptyToken
	}
	parsed := &tokenClaims{}
	tok, err := jwt.ParseWithClaims(raw, parsed, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.issuer))
	if err != nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return toClaims(parsed), nil
}

// PeekClaims decodes a JWT without verifying its signature. Use it only for
// display; the backend is the authority on validity.
func PeekClaims(token string) (Claims, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Claims{}, ErrEmptyToken
	}
	parsed := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, parsed); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return toClaims(parsed), nil
}

func toClaims(c *tokenClaims) Claims {
	out := Claims{Subject: c.Subject, Email: c.Email, Role: c.Role}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// NewSessionID returns a random identifier for a browser session cookie.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id has the shape of a NewSessionID value.
// It says nothing about who minted it.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
