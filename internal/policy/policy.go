package policy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"blindrelay/internal/domain"
)

// AllowAll permits every message.
type AllowAll struct{}

var _ domain.SendPolicy = AllowAll{}

// CanSend always returns true.
func (AllowAll) CanSend(_, _ domain.IdentityHash) bool { return true }

// RateLimiter applies a token bucket per sender and periodically evicts idle
// senders.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	bySrc map[domain.IdentityHash]*entry
	hits  uint64
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var _ domain.SendPolicy = (*RateLimiter)(nil)

// NewRateLimiter returns a limiter allowing rps messages per second per
// sender with the given burst. It returns nil when rps or burst is not
// positive; a nil limiter allows everything.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		bySrc:   make(map[domain.IdentityHash]*entry),
	}
}

// CanSend consumes one token from sender's bucket.
func (l *RateLimiter) CanSend(sender, _ domain.IdentityHash) bool {
	return l.Allow(sender, l.clock())
}

// Allow reports whether sender may send one message at now.
func (l *RateLimiter) Allow(sender domain.IdentityHash, now time.Time) bool {
	if l == nil || sender == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.bySrc[sender]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.bySrc[sender] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.bySrc {
			if v.lastSeen.Before(cutoff) {
				delete(l.bySrc, k)
			}
		}
	}
	return allowed
}

func (l *RateLimiter) clock() time.Time {
	if l == nil {
		return time.Time{}
	}
	return l.now()
}
