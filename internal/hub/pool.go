package hub

import (
	"context"
	"sync"

	"blindrelay/internal/domain"
)

type peerEntry struct {
	s     *Session
	err   error
	ready chan struct{}
}

// PeerPool holds at most one outbound federation socket per peer hub
// address. Concurrent Get calls for the same address share a single dial.
type PeerPool struct {
	mu    sync.Mutex
	peers map[domain.HubAddress]*peerEntry
}

// NewPeerPool returns an empty pool.
func NewPeerPool() *PeerPool {
	return &PeerPool{peers: make(map[domain.HubAddress]*peerEntry)}
}

// Get returns the pooled socket for addr, dialing one when absent.
func (p *PeerPool) Get(
	ctx context.Context,
	addr domain.HubAddress,
	dial func(context.Context) (*Session, error),
) (*Session, error) {
	p.mu.Lock()
	if e, ok := p.peers[addr]; ok {
		p.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.s == nil || !e.s.closed() {
			return e.s, e.err
		}
		// The socket died before its owner could remove it.
		p.Remove(addr, e.s)
		return p.Get(ctx, addr, dial)
	}
	e := &peerEntry{ready: make(chan struct{})}
	p.peers[addr] = e
	p.mu.Unlock()

	s, err := dial(ctx)

	p.mu.Lock()
	e.s, e.err = s, err
	if err != nil && p.peers[addr] == e {
		delete(p.peers, addr)
	}
	p.mu.Unlock()
	close(e.ready)
	return s, err
}

// Remove drops addr only if it still maps to s.
func (p *PeerPool) Remove(addr domain.HubAddress, s *Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.peers[addr]; ok && e.s == s {
		delete(p.peers, addr)
		return true
	}
	return false
}

// Lookup returns the ready socket for addr, if any.
func (p *PeerPool) Lookup(addr domain.HubAddress) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.peers[addr]
	if !ok || e.s == nil {
		return nil, false
	}
	return e.s, true
}

// Len returns the number of pooled addresses, including dials in flight.
func (p *PeerPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}
