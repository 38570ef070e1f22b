package session

import (
	"context"
	"errors"
	"time"

	"github.com/webinarium/roomchat/internal/domain"
)

// DefaultTTL is the guest session validity window.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by Get when no live session exists for a room.
// Expired sessions are deleted on read, not merely skipped.
var ErrNotFound = errors.New("session: not found")

// Store keeps one GuestSession per room with TTL eviction. Writes for
// different rooms are independent; concurrent writes for the same room
// are last-write-wins.
type Store interface {
	Get(ctx context.Context, roomID string) (domain.GuestSession, error)
	Put(ctx context.Context, roomID string, s domain.GuestSession) error
	Delete(ctx context.Context, roomID string) error
}
