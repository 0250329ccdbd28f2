package wire

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blindrelay/internal/domain"
)

// ErrClosed is returned by pipe connections after either end closes.
var ErrClosed = errors.New("connection closed")

const pipeBuffer = 64

type pipeShared struct {
	done chan struct{}
	once sync.Once
}

func (s *pipeShared) close() { s.once.Do(func() { close(s.done) }) }

// PipeConn is one end of an in-memory connection.
type PipeConn struct {
	in     <-chan []byte
	out    chan<- []byte
	shared *pipeShared
	addr   string
}

var _ domain.Conn = (*PipeConn)(nil)

// Pipe returns two connected in-memory ends. Closing either closes both.
func Pipe() (*PipeConn, *PipeConn) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	s := &pipeShared{done: make(chan struct{})}
	return &PipeConn{in: ba, out: ab, shared: s, addr: "pipe-a"},
		&PipeConn{in: ab, out: ba, shared: s, addr: "pipe-b"}
}

// ReadFrame returns the next frame written by the other end.
func (p *PipeConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case b := <-p.in:
		return b, nil
	default:
	}
	select {
	case b := <-p.in:
		return b, nil
	case <-p.shared.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteFrame queues frame for the other end.
func (p *PipeConn) WriteFrame(ctx context.Context, frame []byte) error {
	select {
	case <-p.shared.done:
		return ErrClosed
	default:
	}
	b := append([]byte(nil), frame...)
	select {
	case p.out <- b:
		return nil
	case <-p.shared.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes both ends.
func (p *PipeConn) Close() error {
	p.shared.close()
	return nil
}

// RemoteAddr returns a fixed label for the pipe end.
func (p *PipeConn) RemoteAddr() string { return p.addr }

// MemoryDialer connects to in-process acceptors registered by URL.
type MemoryDialer struct {
	mu    sync.RWMutex
	hosts map[string]func(domain.Conn)
}

var _ domain.Dialer = (*MemoryDialer)(nil)

// NewMemoryDialer returns an empty dialer.
func NewMemoryDialer() *MemoryDialer {
	return &MemoryDialer{hosts: make(map[string]func(domain.Conn))}
}

// Register makes url reachable; accept runs in its own goroutine per dial.
func (d *MemoryDialer) Register(url string, accept func(domain.Conn)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hosts[url] = accept
}

// Dial connects to the acceptor registered for url.
func (d *MemoryDialer) Dial(ctx context.Context, url string) (domain.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	accept, ok := d.hosts[url]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: no such host", url)
	}
	client, server := Pipe()
	go accept(server)
	return client, nil
}
