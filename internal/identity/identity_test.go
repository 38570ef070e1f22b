package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webinarium/roomchat/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID uuid.UUID, role string, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseOperatorToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	op, err := ParseOperatorToken(signToken(t, userID, "moderator", testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, op.UserID)
	assert.Equal(t, domain.RoleModerator, op.Role)

	op, err = ParseOperatorToken(signToken(t, userID, "admin", testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, op.Role)
}

func TestParseOperatorTokenRejectsNonOperators(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	for _, role := range []string{"guest", "user", ""} {
		_, err := ParseOperatorToken(signToken(t, userID, role, testSecret), testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken, "role %q must not pass", role)
	}
}

func TestParseOperatorTokenRejectsBadTokens(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	_, err := ParseOperatorToken(signToken(t, userID, "admin", "wrong-secret"), testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseOperatorToken("not-a-token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired token.
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	expired, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, signErr)
	_, err = ParseOperatorToken(expired, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOperatorRoomIdentity(t *testing.T) {
	t.Parallel()

	op := Operator{UserID: uuid.New(), Role: domain.RoleAdmin}
	id := op.RoomIdentity("room-1", "Olga")
	assert.Equal(t, "room-1", id.RoomID)
	assert.Equal(t, op.UserID.String(), id.UserIdentifier)
	assert.Equal(t, "Olga", id.DisplayName)
	assert.Equal(t, domain.RoleAdmin, id.Role)
	assert.True(t, id.Role.IsOperator())
}
