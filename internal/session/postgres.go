package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webinarium/roomchat/internal/domain"
)

// PostgresStore keeps guest sessions in postgres for deployments that
// already run one next to the CMS.
//
// Expected schema:
//
//	CREATE TABLE guest_sessions (
//	    room_id    TEXT PRIMARY KEY,
//	    first_name TEXT NOT NULL,
//	    last_name  TEXT NOT NULL,
//	    user_id    TEXT NOT NULL,
//	    email      TEXT NOT NULL DEFAULT '',
//	    verified   BOOLEAN NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{pool: pool, ttl: ttl}
}

func (s *PostgresStore) Get(ctx context.Context, roomID string) (domain.GuestSession, error) {
	var sess domain.GuestSession
	err := s.pool.QueryRow(ctx,
		`SELECT first_name, last_name, user_id, email, verified, created_at
		 FROM guest_sessions WHERE room_id = $1`, roomID,
	).Scan(&sess.FirstName, &sess.LastName, &sess.UserID, &sess.Email, &sess.Verified, &sess.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GuestSession{}, ErrNotFound
	}
	if err != nil {
		return domain.GuestSession{}, fmt.Errorf("reading guest session: %w", err)
	}

	if sess.Expired(time.Now(), s.ttl) {
		if err := s.Delete(ctx, roomID); err != nil {
			return domain.GuestSession{}, err
		}
		return domain.GuestSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *PostgresStore) Put(ctx context.Context, roomID string, sess domain.GuestSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO guest_sessions (room_id, first_name, last_name, user_id, email, verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (room_id) DO UPDATE SET
		     first_name = EXCLUDED.first_name,
		     last_name  = EXCLUDED.last_name,
		     user_id    = EXCLUDED.user_id,
		     email      = EXCLUDED.email,
		     verified   = EXCLUDED.verified,
		     created_at = EXCLUDED.created_at`,
		roomID, sess.FirstName, sess.LastName, sess.UserID, sess.Email, sess.Verified, sess.Timestamp)
	if err != nil {
		return fmt.Errorf("writing guest session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, roomID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM guest_sessions WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("deleting guest session: %w", err)
	}
	return nil
}
