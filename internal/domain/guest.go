package domain

import "time"

// GuestRecord is one row of a room's registered guest list. Owned by the
// CMS; read-only here.
type GuestRecord struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// GuestSession is a verified guest admission, cached per room so re-entry
// within the TTL skips re-verification.
type GuestSession struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Verified  bool      `json:"verified"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the session is older than ttl at time now.
func (s GuestSession) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.Timestamp) >= ttl
}
