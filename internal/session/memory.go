package session

import (
	"context"
	"sync"
	"time"

	"github.com/webinarium/roomchat/internal/domain"
)

// MemoryStore is the in-process Store. Suitable for a single operator
// console; redis or postgres back shared deployments.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]domain.GuestSession
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]domain.GuestSession),
	}
}

func (s *MemoryStore) Get(_ context.Context, roomID string) (domain.GuestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[roomID]
	if !ok {
		return domain.GuestSession{}, ErrNotFound
	}
	if sess.Expired(s.now(), s.ttl) {
		delete(s.sessions, roomID)
		return domain.GuestSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Put(_ context.Context, roomID string, sess domain.GuestSession) error {
	s.mu.Lock()
	s.sessions[roomID] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.sessions, roomID)
	s.mu.Unlock()
	return nil
}
