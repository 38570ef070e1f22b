package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/webinarium/roomchat/internal/domain"
)

// ErrInvalidToken covers every way an operator token can fail to parse:
// bad signature, expiry, missing or non-operator role claim.
var ErrInvalidToken = errors.New("identity: invalid operator token")

// Operator is an authenticated moderator or admin. Operators bypass the
// admission gate; their identity comes from the platform's auth service
// as a signed token.
type Operator struct {
	UserID uuid.UUID
	Role   domain.Role
}

// ParseOperatorToken validates a platform JWT and extracts the operator
// identity. Only moderator and admin role claims are accepted.
func ParseOperatorToken(tokenStr, secret string) (Operator, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Operator{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Operator{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Operator{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Operator{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	r := domain.Role(role)
	if !r.IsOperator() {
		return Operator{}, ErrInvalidToken
	}

	return Operator{UserID: userID, Role: r}, nil
}

// RoomIdentity builds the channel identity for this operator in a room.
func (o Operator) RoomIdentity(roomID, displayName string) domain.RoomIdentity {
	return domain.RoomIdentity{
		RoomID:         roomID,
		UserIdentifier: o.UserID.String(),
		DisplayName:    displayName,
		Role:           o.Role,
	}
}
