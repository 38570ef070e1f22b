package ws

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const (
	// maxAttempts is the reconnect ceiling; after this many consecutive
	// failures the transport stops and reports exhaustion.
	maxAttempts = 5

	defaultBaseDelay = 2 * time.Second
)

// ErrNotOpen is returned by Send when no socket is live.
var ErrNotOpen = errors.New("ws: connection not open")

// Handlers receive transport lifecycle callbacks. All callbacks are
// optional and are invoked from the transport's goroutines.
type Handlers struct {
	// OnConnecting fires before each dial. attempt is 0 for a caller
	// initiated open and 1..maxAttempts for reconnects.
	OnConnecting func(attempt int)
	OnOpen       func()
	OnFrame      func(data []byte)
	// OnError reports a recoverable socket failure; a reconnect is
	// already scheduled when it fires (unless the budget ran out, in
	// which case OnExhausted follows).
	OnError     func(err error)
	OnExhausted func()
}

// Conn owns one bidirectional socket for a room and its reconnect
// timing. Exactly one dial is outstanding at a time; reconnects use a
// linearly increasing backoff of base*n for attempt n.
type Conn struct {
	url   string
	dial  DialFunc
	base  time.Duration
	h     Handlers

	mu       sync.Mutex
	sock     Socket
	opening  bool
	closed   bool
	attempts int
	epoch    int
	retry    *time.Timer
	pingStop chan struct{}
}

// NewConn builds a transport for url. A nil dial uses the default
// websocket dialer; baseDelay <= 0 uses the default.
func NewConn(url string, dial DialFunc, baseDelay time.Duration) *Conn {
	if dial == nil {
		dial = Dial
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &Conn{url: url, dial: dial, base: baseDelay}
}

// SetHandlers must be called before Open.
func (c *Conn) SetHandlers(h Handlers) {
	c.h = h
}

// Open starts a connection attempt. No-op while a socket is live or a
// dial is already in flight. Resets the retry budget.
func (c *Conn) Open(ctx context.Context) {
	c.mu.Lock()
	if c.sock != nil || c.opening {
		c.mu.Unlock()
		return
	}
	c.closed = false
	c.attempts = 0
	c.opening = true
	epoch := c.epoch
	c.mu.Unlock()

	go c.dialOnce(ctx, 0, epoch)
}

// Send writes one frame. Fails with ErrNotOpen when no socket is live.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return ErrNotOpen
	}
	return sock.Write(ctx, data)
}

// Close tears the connection down and cancels any pending reconnect.
// Idempotent; safe to call from a frame callback.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.opening = false
	c.epoch++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	sock := c.sock
	c.sock = nil
	c.stopPingLocked()
	c.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
}

// dialOnce performs one dial attempt. epoch pins the attempt to the
// Open call that caused it; a Close in between makes it a no-op. Stale
// attempts must not touch opening: it may already belong to a newer
// Open, and Close cleared it for the closed case.
func (c *Conn) dialOnce(ctx context.Context, attempt, epoch int) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.h.OnConnecting != nil {
		c.h.OnConnecting(attempt)
	}

	sock, err := c.dial(ctx, c.url)

	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		if err == nil {
			sock.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		log.Printf("ws: dial %s failed: %v", c.url, err)
		if c.h.OnError != nil {
			c.h.OnError(err)
		}
		c.scheduleRetry(ctx, epoch)
		return
	}

	c.sock = sock
	c.opening = false
	c.attempts = 0
	stop := make(chan struct{})
	c.pingStop = stop
	c.mu.Unlock()

	if c.h.OnOpen != nil {
		c.h.OnOpen()
	}
	go c.readPump(ctx, sock)
	go c.pingPump(ctx, sock, stop)
}

// readPump delivers inbound frames until the socket fails or Close is
// called.
func (c *Conn) readPump(ctx context.Context, sock Socket) {
	for {
		data, err := sock.Read(ctx)
		if err != nil {
			c.fail(ctx, sock, err)
			return
		}
		if c.h.OnFrame != nil {
			c.h.OnFrame(data)
		}
	}
}

func (c *Conn) pingPump(ctx context.Context, sock Socket, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := sock.Ping(ctx); err != nil {
				c.fail(ctx, sock, err)
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fail handles an unexpected socket failure exactly once per socket.
func (c *Conn) fail(ctx context.Context, sock Socket, err error) {
	c.mu.Lock()
	if c.closed || c.sock != sock {
		// Caller-initiated close, or a newer socket already took over.
		c.mu.Unlock()
		return
	}
	c.sock = nil
	c.stopPingLocked()
	c.mu.Unlock()

	sock.Close()
	log.Printf("ws: connection lost: %v", err)
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.scheduleRetry(ctx, epoch)
}

// scheduleRetry arms the next reconnect attempt, or reports exhaustion
// once maxAttempts consecutive failures have occurred.
func (c *Conn) scheduleRetry(ctx context.Context, epoch int) {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		// Same rule as dialOnce: opening is not this attempt's to clear.
		c.mu.Unlock()
		return
	}
	if c.attempts >= maxAttempts {
		c.opening = false
		c.mu.Unlock()
		log.Printf("ws: giving up after %d reconnect attempts", maxAttempts)
		if c.h.OnExhausted != nil {
			c.h.OnExhausted()
		}
		return
	}
	c.attempts++
	n := c.attempts
	c.opening = true
	c.retry = time.AfterFunc(c.base*time.Duration(n), func() {
		c.dialOnce(ctx, n, epoch)
	})
	c.mu.Unlock()
}

func (c *Conn) stopPingLocked() {
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}
