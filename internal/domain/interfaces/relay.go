package interfaces

import "context"

// Conn is a persistent bidirectional message transport. Each call to
// WriteFrame delivers exactly one ReadFrame on the other side.
type Conn interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
	RemoteAddr() string
}

// Dialer opens a Conn to a hub URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}
