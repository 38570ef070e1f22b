package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webinarium/roomchat/internal/domain"
	"github.com/webinarium/roomchat/internal/session"
	"github.com/webinarium/roomchat/pkg/phoneutil"
)

var (
	// ErrDenied means the room has a guest list and no record matched.
	ErrDenied = errors.New("admission: no matching guest record")
	// ErrUnavailable means the guest list could not be fetched. Access
	// is never granted on fetch failure.
	ErrUnavailable = errors.New("admission: guest list unavailable")
)

// State of the gate for one room.
type State string

const (
	StateUnchecked State = "unchecked"
	StateChecking  State = "checking"
	StateGranted   State = "granted"
	StateDenied    State = "denied"
)

// GuestLister reads a room's registered guest list from the CMS.
type GuestLister interface {
	GuestList(ctx context.Context, roomID string) (guests []domain.GuestRecord, configured bool, err error)
}

// Gate verifies a guest's claimed identity against the room's guest
// list and caches successful admissions so re-entry within the TTL
// skips re-verification. Operator roles never pass through here.
type Gate struct {
	guests GuestLister
	store  session.Store
	now    func() time.Time

	mu     sync.Mutex
	states map[string]State
}

func NewGate(guests GuestLister, store session.Store) *Gate {
	return &Gate{
		guests: guests,
		store:  store,
		now:    time.Now,
		states: make(map[string]State),
	}
}

// State returns the gate position for roomID.
func (g *Gate) State(roomID string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.states[roomID]; ok {
		return s
	}
	return StateUnchecked
}

// CheckAccess consults the local session store. A verified, unexpired
// session grants access without any network call; otherwise the caller
// must run Verify. The store deletes expired sessions on read.
func (g *Gate) CheckAccess(ctx context.Context, roomID string) (domain.GuestSession, bool, error) {
	sess, err := g.store.Get(ctx, roomID)
	if errors.Is(err, session.ErrNotFound) {
		g.setState(roomID, StateUnchecked)
		return domain.GuestSession{}, false, nil
	}
	if err != nil {
		return domain.GuestSession{}, false, fmt.Errorf("checking guest session: %w", err)
	}
	if !sess.Verified {
		g.setState(roomID, StateUnchecked)
		return domain.GuestSession{}, false, nil
	}

	g.setState(roomID, StateGranted)
	return sess, true, nil
}

// Verify checks the claimed name and phone against the room's guest
// list. Name comparison is case-insensitive, phone comparison digits
// only. A room with no guest list configured at all admits anyone: no
// allow-list means the room is unrestricted.
func (g *Gate) Verify(ctx context.Context, roomID, name, phone string) (domain.GuestSession, error) {
	g.setState(roomID, StateChecking)

	guests, configured, err := g.guests.GuestList(ctx, roomID)
	if err != nil {
		// Fetch failure is not a denial; the gate stays uncommitted so
		// the guest can retry.
		g.setState(roomID, StateUnchecked)
		return domain.GuestSession{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if configured && !matches(guests, name, phone) {
		g.setState(roomID, StateDenied)
		return domain.GuestSession{}, ErrDenied
	}

	first, last := splitName(name)
	sess := domain.GuestSession{
		FirstName: first,
		LastName:  last,
		UserID:    uuid.NewString(),
		Verified:  true,
		Timestamp: g.now(),
	}
	if err := g.store.Put(ctx, roomID, sess); err != nil {
		// Admission stands; only re-entry caching is lost.
		log.Printf("gate: persisting guest session for room %s: %v", roomID, err)
	}

	g.setState(roomID, StateGranted)
	return sess, nil
}

// Clear drops any cached session for roomID, forcing re-verification.
func (g *Gate) Clear(ctx context.Context, roomID string) error {
	g.setState(roomID, StateUnchecked)
	return g.store.Delete(ctx, roomID)
}

func (g *Gate) setState(roomID string, s State) {
	g.mu.Lock()
	g.states[roomID] = s
	g.mu.Unlock()
}

func matches(guests []domain.GuestRecord, name, phone string) bool {
	wantName := phoneutil.FoldName(name)
	for _, rec := range guests {
		if phoneutil.FoldName(rec.Name) == wantName && phoneutil.Equal(rec.Phone, phone) {
			return true
		}
	}
	return false
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
