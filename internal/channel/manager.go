package channel

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/webinarium/roomchat/internal/domain"
	"github.com/webinarium/roomchat/internal/transport/ws"
)

var (
	// ErrNotConnected is returned when an operation needs a live channel
	// and there is none.
	ErrNotConnected = errors.New("channel: not connected")
	// ErrTransportExhausted marks terminal reconnect failure; a manual
	// Connect is required to try again.
	ErrTransportExhausted = errors.New("channel: reconnect attempts exhausted")
)

// Status of one channel session as seen by consumers.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Consumer receives decoded traffic and state changes from a Manager.
// Callbacks arrive in transport order, one at a time.
type Consumer interface {
	OnMessage(msg domain.Message)
	OnEvent(evt domain.Event)
	OnStatus(status Status)
	// OnTerminal fires after reconnect exhaustion, after the final
	// OnStatus(StatusDisconnected). Distinct from recoverable errors.
	OnTerminal(err error)
}

// Manager wraps one transport connection with a room identity, decodes
// frames into Messages and Events, and drives the status state machine.
// The identity is fixed for the Manager's lifetime; a new identity means
// a new Manager.
type Manager struct {
	identity domain.RoomIdentity
	conn     *ws.Conn

	mu        sync.Mutex
	status    Status
	consumers []Consumer
}

// NewManager builds a manager for identity connecting to url. dial and
// baseDelay are passed through to the transport.
func NewManager(identity domain.RoomIdentity, url string, dial ws.DialFunc, baseDelay time.Duration) *Manager {
	m := &Manager{
		identity: identity,
		status:   StatusDisconnected,
	}
	m.conn = ws.NewConn(url, dial, baseDelay)
	m.conn.SetHandlers(ws.Handlers{
		OnConnecting: func(attempt int) { m.setStatus(StatusConnecting) },
		OnOpen:       func() { m.setStatus(StatusConnected) },
		OnFrame:      m.handleFrame,
		OnError: func(err error) {
			m.setStatus(StatusError)
		},
		OnExhausted: func() {
			m.setStatus(StatusDisconnected)
			for _, c := range m.snapshot() {
				c.OnTerminal(ErrTransportExhausted)
			}
		},
	})
	return m
}

// Identity returns the immutable identity this manager was built for.
func (m *Manager) Identity() domain.RoomIdentity {
	return m.identity
}

// Subscribe registers a consumer. Must happen before traffic is wanted;
// there is no replay.
func (m *Manager) Subscribe(c Consumer) {
	m.mu.Lock()
	m.consumers = append(m.consumers, c)
	m.mu.Unlock()
}

// Connect opens the transport. Idempotent: a second call while a
// connection attempt is in flight or a socket is live does nothing.
func (m *Manager) Connect(ctx context.Context) {
	m.conn.Open(ctx)
}

// Disconnect closes the transport and suppresses any pending reconnect.
// Safe to call repeatedly and from consumer callbacks.
func (m *Manager) Disconnect() {
	m.conn.Close()
	m.setStatus(StatusDisconnected)
}

// Status returns the current state machine position.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SendMessage enqueues chat text as an outgoing message frame. There is
// no local echo: the text reaches consumers only if the backend relays
// it back.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	if m.Status() != StatusConnected {
		return ErrNotConnected
	}
	data, err := encodeMessage(m.identity, text)
	if err != nil {
		return err
	}
	return m.send(ctx, data)
}

// SendEvent transmits a control event and returns once the transport
// confirms submission. Moderation effects arrive later as inbound
// events, not through this return.
func (m *Manager) SendEvent(ctx context.Context, evt domain.Event) error {
	if m.Status() != StatusConnected {
		return ErrNotConnected
	}
	if evt.Channel == "" {
		evt.Channel = m.identity.RoomID
	}
	data, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	return m.send(ctx, data)
}

func (m *Manager) send(ctx context.Context, data []byte) error {
	if err := m.conn.Send(ctx, data); err != nil {
		if errors.Is(err, ws.ErrNotOpen) {
			return ErrNotConnected
		}
		return err
	}
	return nil
}

func (m *Manager) handleFrame(data []byte) {
	msg, evt, err := decodeFrame(data)
	if err != nil {
		log.Printf("channel: dropping undecodable frame: %v", err)
		return
	}
	for _, c := range m.snapshot() {
		if msg != nil {
			c.OnMessage(*msg)
		} else {
			c.OnEvent(*evt)
		}
	}
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	consumers := make([]Consumer, len(m.consumers))
	copy(consumers, m.consumers)
	m.mu.Unlock()

	for _, c := range consumers {
		c.OnStatus(s)
	}
}

func (m *Manager) snapshot() []Consumer {
	m.mu.Lock()
	defer m.mu.Unlock()
	consumers := make([]Consumer, len(m.consumers))
	copy(consumers, m.consumers)
	return consumers
}
