package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

// Socket is the minimal surface the transport needs from a live
// websocket. Fakes implement it in tests.
type Socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// DialFunc opens a Socket for a room URL.
type DialFunc func(ctx context.Context, url string) (Socket, error)

// Dial is the default DialFunc, backed by nhooyr.io/websocket.
func Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &nhooyrSocket{conn: conn}, nil
}

type nhooyrSocket struct {
	conn *websocket.Conn
}

func (s *nhooyrSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *nhooyrSocket) Write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *nhooyrSocket) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return s.conn.Ping(ctx)
}

func (s *nhooyrSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
