package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"blindrelay/internal/domain"
	"blindrelay/internal/hub/instrument"
)

type sessionState int32

const (
	stateUnauthenticated sessionState = iota
	stateDialing
	stateAuthenticated
	statePeerHub
	stateRejected
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateDialing:
		return "dialing"
	case stateAuthenticated:
		return "authenticated"
	case statePeerHub:
		return "peer-hub"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Session is one hub-side socket: a client, an inbound peer hub, or a peer
// hub this hub dialed. Frames queued with enqueue are written in order by a
// single writer goroutine.
type Session struct {
	srv  *Server
	conn domain.Conn
	log  *log.Logger

	state     atomic.Int32
	challenge string

	// identity is set once for client sockets, peer for peer hub sockets
	// this hub dialed. Neither changes once the reader goroutine runs.
	identity domain.IdentityHash
	peer     domain.HubAddress

	out       chan []byte
	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(srv *Server, conn domain.Conn, queue int) *Session {
	return &Session{
		srv:   srv,
		conn:  conn,
		log:   srv.log.With("remote", conn.RemoteAddr()),
		out:   make(chan []byte, queue),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (s *Session) getState() sessionState { return sessionState(s.state.Load()) }

func (s *Session) setState(st sessionState) { s.state.Store(int32(st)) }

// enqueue queues frame for writing. A full queue drops the frame rather
// than stall the sender's socket.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	case <-s.done:
		return false
	default:
		s.srv.metrics.Drop(instrument.DropQueueFull)
		s.log.Warn("outbound queue full, dropping frame")
		return false
	}
}

// reject writes frame and then closes the socket.
func (s *Session) reject(frame []byte) {
	s.setState(stateRejected)
	if frame == nil || !s.enqueue(frame) {
		s.Close()
		return
	}
	select {
	case s.out <- nil:
	default:
		s.Close()
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case b := <-s.out:
			if b == nil {
				s.Close()
				return
			}
			if err := s.conn.WriteFrame(ctx, b); err != nil {
				s.log.Debug("write failed", "err", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close closes the socket. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }
