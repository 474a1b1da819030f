package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "s3cret-pass"))
}

func TestSignJWTCarriesIdentity(t *testing.T) {
	token, err := SignJWT("test-secret", "user-123", "frank@freelancer.test", "freelancer", 60)
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(*Claims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "frank@freelancer.test", claims.Email)
	assert.Equal(t, "freelancer", claims.Role)
}

func TestSignJWTWrongSecretFails(t *testing.T) {
	token, err := SignJWT("test-secret", "user-123", "frank@freelancer.test", "freelancer", 60)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	require.Error(t, err)
}
