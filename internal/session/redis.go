package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/webinarium/roomchat/internal/domain"
)

// RedisStore keeps guest sessions in redis, letting key expiry enforce
// the TTL across processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(roomID string) string {
	return "guest_session:" + roomID
}

func (s *RedisStore) Get(ctx context.Context, roomID string) (domain.GuestSession, error) {
	data, err := s.client.Get(ctx, key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GuestSession{}, ErrNotFound
	}
	if err != nil {
		return domain.GuestSession{}, fmt.Errorf("reading guest session: %w", err)
	}

	var sess domain.GuestSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.GuestSession{}, fmt.Errorf("decoding guest session: %w", err)
	}
	// Redis expiry normally evicts this first; guard against a lagging
	// server clock.
	if sess.Expired(time.Now(), s.ttl) {
		s.client.Del(ctx, key(roomID))
		return domain.GuestSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, roomID string, sess domain.GuestSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(roomID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing guest session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, key(roomID)).Err(); err != nil {
		return fmt.Errorf("deleting guest session: %w", err)
	}
	return nil
}
