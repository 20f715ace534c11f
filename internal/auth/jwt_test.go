package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, secret string, ttl time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(secret, ttl)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_RejectsEmptySecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		svc, err := NewJWTService(secret, time.Hour)
		assert.ErrorIs(t, err, ErrEmptySecret)
		assert.Nil(t, svc)
	}
}

func TestServiceToken_RoundTrip(t *testing.T) {
	svc := newService(t, "secret", time.Hour)

	token, err := svc.GenerateServiceToken("game-server", ScopeSubmitOutcomes)
	require.NoError(t, err)

	claims, err := svc.ValidateServiceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "game-server", claims.Service)
	assert.True(t, claims.HasScope(ScopeSubmitOutcomes))
	assert.False(t, claims.HasScope("admin"))
}

func TestServiceToken_WrongSecret(t *testing.T) {
	token, err := newService(t, "secret", time.Hour).GenerateServiceToken("game-server")
	require.NoError(t, err)

	_, err = newService(t, "other", time.Hour).ValidateServiceToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceToken_Expired(t *testing.T) {
	svc := newService(t, "secret", time.Hour)
	claims := ServiceTokenClaims{
		Service: "game-server",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateServiceToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestServiceToken_Garbage(t *testing.T) {
	_, err := newService(t, "secret", 0).ValidateServiceToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
