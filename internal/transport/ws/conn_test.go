package ws

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	frames chan []byte
	errs   chan error

	mu     sync.Mutex
	sent   [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		frames: make(chan []byte, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSocket) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	s.sent = append(s.sent, data)
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) Ping(context.Context) error { return nil }

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type recorder struct {
	mu          sync.Mutex
	connecting  []int
	connectTime []time.Time
	opens       int
	errors      int
	exhausted   int
	frames      [][]byte
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnecting: func(attempt int) {
			r.mu.Lock()
			r.connecting = append(r.connecting, attempt)
			r.connectTime = append(r.connectTime, time.Now())
			r.mu.Unlock()
		},
		OnOpen: func() {
			r.mu.Lock()
			r.opens++
			r.mu.Unlock()
		},
		OnFrame: func(data []byte) {
			r.mu.Lock()
			r.frames = append(r.frames, data)
			r.mu.Unlock()
		},
		OnError: func(error) {
			r.mu.Lock()
			r.errors++
			r.mu.Unlock()
		},
		OnExhausted: func() {
			r.mu.Lock()
			r.exhausted++
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() (connecting []int, opens, errs, exhausted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.connecting...), r.opens, r.errors, r.exhausted
}

func TestReconnectBackoffAndExhaustion(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond
	rec := &recorder{}

	dialErr := errors.New("refused")
	conn := NewConn("ws://test", func(context.Context, string) (Socket, error) {
		return nil, dialErr
	}, base)
	conn.SetHandlers(rec.handlers())

	conn.Open(context.Background())

	require.Eventually(t, func() bool {
		_, _, _, exhausted := rec.snapshot()
		return exhausted == 1
	}, 3*time.Second, 5*time.Millisecond)

	// Give a would-be 6th attempt time to fire, then check it did not.
	time.Sleep(8 * base)

	connecting, opens, errs, exhausted := rec.snapshot()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, connecting, "initial dial plus exactly 5 reconnects")
	assert.Equal(t, 0, opens)
	assert.Equal(t, 6, errs)
	assert.Equal(t, 1, exhausted)

	// Attempt n must wait at least base*n after the previous failure.
	rec.mu.Lock()
	times := append([]time.Time(nil), rec.connectTime...)
	rec.mu.Unlock()
	for n := 1; n < len(times); n++ {
		gap := times[n].Sub(times[n-1])
		assert.GreaterOrEqual(t, gap, time.Duration(n)*base, "attempt %d fired too early", n)
	}
}

func TestOpenIsIdempotentWhileDialInFlight(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	release := make(chan struct{})
	conn := NewConn("ws://test", func(ctx context.Context, _ string) (Socket, error) {
		dials.Add(1)
		<-release
		return newFakeSocket(), nil
	}, time.Millisecond)
	rec := &recorder{}
	conn.SetHandlers(rec.handlers())

	ctx := context.Background()
	conn.Open(ctx)
	conn.Open(ctx)
	conn.Open(ctx)

	close(release)
	require.Eventually(t, func() bool {
		_, opens, _, _ := rec.snapshot()
		return opens == 1
	}, time.Second, time.Millisecond)

	// A live socket also makes Open a no-op.
	conn.Open(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())

	conn.Close()
}

func TestAttemptCounterResetsAfterSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	socks := make(chan *fakeSocket, 8)
	dial := func(context.Context, string) (Socket, error) {
		n := calls.Add(1)
		if n == 1 {
			return nil, errors.New("refused")
		}
		s := newFakeSocket()
		socks <- s
		return s, nil
	}

	rec := &recorder{}
	conn := NewConn("ws://test", dial, time.Millisecond)
	conn.SetHandlers(rec.handlers())

	conn.Open(context.Background())

	// Fails once, reconnects as attempt 1, succeeds.
	var first *fakeSocket
	select {
	case first = <-socks:
	case <-time.After(time.Second):
		t.Fatal("no socket after retry")
	}
	require.Eventually(t, func() bool {
		_, opens, _, _ := rec.snapshot()
		return opens == 1
	}, time.Second, time.Millisecond)

	// Drop the live socket: the next reconnect must be attempt 1 again,
	// not attempt 2.
	first.errs <- errors.New("reset by peer")

	require.Eventually(t, func() bool {
		_, opens, _, _ := rec.snapshot()
		return opens == 2
	}, time.Second, time.Millisecond)

	connecting, _, _, _ := rec.snapshot()
	assert.Equal(t, []int{0, 1, 1}, connecting)

	conn.Close()
}

func TestReopenFromErrorHandlerKeepsOpenIdempotent(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	release := make(chan struct{})
	dial := func(context.Context, string) (Socket, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("refused")
		}
		<-release
		return newFakeSocket(), nil
	}

	rec := &recorder{}
	conn := NewConn("ws://test", dial, time.Millisecond)
	h := rec.handlers()
	record := h.OnError
	var reopened atomic.Bool
	h.OnError = func(err error) {
		record(err)
		// Tear down and reopen from inside the error callback, like a
		// caller switching rooms after a failed dial.
		if reopened.CompareAndSwap(false, true) {
			conn.Close()
			conn.Open(context.Background())
		}
	}
	conn.SetHandlers(h)

	conn.Open(context.Background())

	require.Eventually(t, func() bool { return dials.Load() == 2 }, time.Second, time.Millisecond)

	// The failed attempt's retry bookkeeping has run against the old
	// epoch by now; it must not have released the newer open's in-flight
	// guard, so another Open stays a no-op while the dial is blocked.
	time.Sleep(20 * time.Millisecond)
	conn.Open(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), dials.Load(), "reopen while a dial is in flight must not dial again")

	close(release)
	require.Eventually(t, func() bool {
		_, opens, _, _ := rec.snapshot()
		return opens == 1
	}, time.Second, time.Millisecond)

	conn.Close()
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	conn := NewConn("ws://test", func(context.Context, string) (Socket, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}, 50*time.Millisecond)
	rec := &recorder{}
	conn.SetHandlers(rec.handlers())

	conn.Open(context.Background())
	require.Eventually(t, func() bool { return dials.Load() == 1 }, time.Second, time.Millisecond)

	// Retry is scheduled; Close must cancel it. Twice, to check
	// idempotence.
	conn.Close()
	conn.Close()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())

	_, _, _, exhausted := rec.snapshot()
	assert.Zero(t, exhausted)
}

func TestSendRequiresOpenSocket(t *testing.T) {
	t.Parallel()

	conn := NewConn("ws://test", func(context.Context, string) (Socket, error) {
		return newFakeSocket(), nil
	}, time.Millisecond)

	err := conn.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestFramesDeliveredInOrder(t *testing.T) {
	t.Parallel()

	sock := newFakeSocket()
	conn := NewConn("ws://test", func(context.Context, string) (Socket, error) {
		return sock, nil
	}, time.Millisecond)
	rec := &recorder{}
	conn.SetHandlers(rec.handlers())

	conn.Open(context.Background())
	require.Eventually(t, func() bool {
		_, opens, _, _ := rec.snapshot()
		return opens == 1
	}, time.Second, time.Millisecond)

	sock.frames <- []byte("a")
	sock.frames <- []byte("b")
	sock.frames <- []byte("c")

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.frames) == 3
	}, time.Second, time.Millisecond)

	rec.mu.Lock()
	got := make([]string, 0, 3)
	for _, f := range rec.frames {
		got = append(got, string(f))
	}
	rec.mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)

	conn.Close()
}
