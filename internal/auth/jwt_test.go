package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTService_ValidToken(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, "test-secret", Claims{
		UserID: userID,
		Email:  "host@example.com",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := NewJWTService("test-secret").Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "host@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token := signToken(t, "secret-a", Claims{
		UserID: uuid.New(),
		Email:  "a@example.com",
		Role:   "attendee",
	})

	_, err := NewJWTService("secret-b").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expired(t *testing.T) {
	token := signToken(t, "test-secret", Claims{
		UserID: uuid.New(),
		Email:  "late@example.com",
		Role:   "attendee",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := NewJWTService("test-secret").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Garbage(t *testing.T) {
	_, err := NewJWTService("secret").Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
