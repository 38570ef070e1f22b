package channel

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/webinarium/roomchat/internal/domain"
	"github.com/webinarium/roomchat/internal/transport/ws"
)

// Session is the caller-owned handle around at most one Manager. It is
// the single place identity changes and connectivity-regained signals
// enter the connect path, so no second reconnect path exists.
type Session struct {
	wsBase    string
	dial      ws.DialFunc
	baseDelay time.Duration

	mu            sync.Mutex
	identity      domain.RoomIdentity
	hasIdentity   bool
	mgr           *Manager
	consumers     []Consumer
	wantConnected bool
}

// NewSession builds an unbound session. wsBase is the realtime endpoint
// prefix; dial and baseDelay pass through to each Manager's transport.
func NewSession(wsBase string, dial ws.DialFunc, baseDelay time.Duration) *Session {
	return &Session{wsBase: wsBase, dial: dial, baseDelay: baseDelay}
}

// Subscribe registers a consumer on the current and every future
// Manager, so re-identification does not drop observers.
func (s *Session) Subscribe(c Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, c)
	if s.mgr != nil {
		s.mgr.Subscribe(c)
	}
}

// SetIdentity binds the session to identity. A live Manager for a
// different identity is torn down first; identity is never mutated on a
// live instance. If the session was connected, the replacement connects
// immediately.
func (s *Session) SetIdentity(ctx context.Context, identity domain.RoomIdentity) {
	s.mu.Lock()
	if s.hasIdentity && s.identity.Equal(identity) {
		s.mu.Unlock()
		return
	}
	old := s.mgr
	s.mgr = nil
	s.identity = identity
	s.hasIdentity = true
	reconnect := s.wantConnected
	s.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
	if reconnect {
		s.Connect(ctx)
	}
}

// Connect constructs a Manager for the current identity if none exists
// and opens its transport. Idempotent.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasIdentity {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.mgr == nil {
		s.mgr = NewManager(s.identity, s.roomURL(), s.dial, s.baseDelay)
		for _, c := range s.consumers {
			s.mgr.Subscribe(c)
		}
	}
	mgr := s.mgr
	s.wantConnected = true
	s.mu.Unlock()

	mgr.Connect(ctx)
	return nil
}

// Disconnect closes the channel and marks the session as deliberately
// offline: Wake will not reconnect it. Safe to call repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.wantConnected = false
	mgr := s.mgr
	s.mu.Unlock()

	if mgr != nil {
		mgr.Disconnect()
	}
}

// Wake is the connectivity-regained entry point (visibility restored,
// network back). It re-invokes Connect for a session that still wants
// to be online but is currently disconnected; it never resurrects a
// session the caller closed.
func (s *Session) Wake(ctx context.Context) {
	s.mu.Lock()
	mgr := s.mgr
	want := s.wantConnected
	s.mu.Unlock()

	if !want || mgr == nil {
		return
	}
	if mgr.Status() == StatusDisconnected {
		s.Connect(ctx)
	}
}

// SendMessage forwards to the live Manager.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	mgr := s.manager()
	if mgr == nil {
		return ErrNotConnected
	}
	return mgr.SendMessage(ctx, text)
}

// SendEvent forwards to the live Manager.
func (s *Session) SendEvent(ctx context.Context, evt domain.Event) error {
	mgr := s.manager()
	if mgr == nil {
		return ErrNotConnected
	}
	return mgr.SendEvent(ctx, evt)
}

// Status reports the current Manager's state, or disconnected when no
// Manager exists.
func (s *Session) Status() Status {
	mgr := s.manager()
	if mgr == nil {
		return StatusDisconnected
	}
	return mgr.Status()
}

func (s *Session) manager() *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr
}

// roomURL builds the room-scoped transport address. Caller holds s.mu.
func (s *Session) roomURL() string {
	q := url.Values{}
	q.Set("user", s.identity.UserIdentifier)
	q.Set("name", s.identity.DisplayName)
	q.Set("role", string(s.identity.Role))
	return s.wsBase + "/chat/" + url.PathEscape(s.identity.RoomID) + "?" + q.Encode()
}
