package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRequiresValue(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("leave-me-alone")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("leave-me-alone", hash))
	assert.False(t, VerifyPassword("wrong-password", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "lms", time.Hour)
	token, err := tm.Generate("E-1", "ann@x.io", "Employee")
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "E-1", claims.Subject)
	assert.Equal(t, "ann@x.io", claims.Email)
	assert.Equal(t, "Employee", claims.Role)
	assert.False(t, claims.Expired(time.Now()), "fresh token reported expired")
	assert.True(t, claims.Expired(time.Now().Add(2*time.Hour)))
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("one", "lms", time.Hour).Generate("E-1", "", "Employee")
	require.NoError(t, err)

	_, err = NewTokenManager("two", "lms", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = NewTokenManager("one", "lms", time.Hour).Verify(" ")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestPeekClaimsSkipsSignature(t *testing.T) {
	token, err := NewTokenManager("server-only", "lms", time.Minute).Generate("M-9", "boss@x.io", "Manager")
	require.NoError(t, err)

	claims, err := PeekClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "M-9", claims.Subject)
	assert.Equal(t, "Manager", claims.Role)

	_, err = PeekClaims("opaque-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionIDs(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.NotEqual(t, a, b)
	assert.True(t, ValidSessionID(a))
	assert.True(t, ValidSessionID("11111111-2222-4333-8444-555555555555"), "shape only, not provenance")
	assert.False(t, ValidSessionID("admin"))
	assert.False(t, ValidSessionID(""))
}
