package hub

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"blindrelay/internal/domain"
	"blindrelay/internal/logging"
)

// maxParallelDials bounds concurrent peer dials for one resolution.
const maxParallelDials = 8

// Resolver finds or opens sockets to the peer hubs that host an identity.
// A peer whose dial failed is skipped until backoff has passed.
type Resolver struct {
	self     domain.HubAddress
	presence domain.PresenceDirectory
	pool     *PeerPool
	dial     func(context.Context, domain.HubAddress) (*Session, error)
	backoff  time.Duration
	log      *log.Logger

	mu     sync.Mutex
	failed map[domain.HubAddress]time.Time
}

// NewResolver returns a resolver for the hub reachable at self. A
// non-positive backoff retries failed peers on every resolution.
func NewResolver(
	self domain.HubAddress,
	presence domain.PresenceDirectory,
	pool *PeerPool,
	dial func(context.Context, domain.HubAddress) (*Session, error),
	backoff time.Duration,
	logger *log.Logger,
) *Resolver {
	return &Resolver{
		self:     self,
		presence: presence,
		pool:     pool,
		dial:     dial,
		backoff:  backoff,
		log:      logging.Or(logger),
		failed:   make(map[domain.HubAddress]time.Time),
	}
}

// ResolvePeerHubSockets returns a socket for every peer hub the presence
// directory lists for id, excluding this hub. Peers that cannot be reached
// are logged and left out.
func (r *Resolver) ResolvePeerHubSockets(ctx context.Context, id domain.IdentityHash) []*Session {
	addrs, err := r.presence.GetSetOrEmpty(ctx, id)
	if err != nil {
		r.log.Warn("presence lookup failed", "identity", id.Short(), "err", err)
		return nil
	}

	now := time.Now()
	peers := make([]domain.HubAddress, 0, len(addrs))
	for _, addr := range addrs {
		if addr != r.self && addr != "" && !r.backingOff(addr, now) {
			peers = append(peers, addr)
		}
	}
	if len(peers) == 0 {
		return nil
	}

	found := make([]*Session, len(peers))
	var g errgroup.Group
	g.SetLimit(maxParallelDials)
	for i, addr := range peers {
		g.Go(func() error {
			s, err := r.pool.Get(ctx, addr, func(ctx context.Context) (*Session, error) {
				return r.dial(ctx, addr)
			})
			if err != nil {
				r.log.Warn("peer hub unreachable", "hub", addr, "err", err)
				r.markFailed(addr)
				return nil
			}
			found[i] = s
			return nil
		})
	}
	_ = g.Wait()

	out := found[:0]
	for _, s := range found {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (r *Resolver) backingOff(addr domain.HubAddress, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.failed[addr]
	if !ok {
		return false
	}
	if now.Before(until) {
		return true
	}
	delete(r.failed, addr)
	return false
}

func (r *Resolver) markFailed(addr domain.HubAddress) {
	if r.backoff <= 0 {
		return
	}
	r.mu.Lock()
	r.failed[addr] = time.Now().Add(r.backoff)
	r.mu.Unlock()
}
