package policy

import (
	"sync"
	"sync/atomic"

	"blindrelay/internal/domain"
)

// Usage is the per-sender tally kept by a Ledger.
type Usage struct {
	Messages   uint64
	Recipients map[domain.IdentityHash]uint64
}

type record struct {
	sender, receiver domain.IdentityHash
}

// Ledger is a domain.Recorder that tallies accepted messages per sender for
// billing. Record hands events to a background goroutine and never blocks;
// events are dropped when the queue is full.
type Ledger struct {
	in      chan record
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64

	mu    sync.Mutex
	usage map[domain.IdentityHash]*Usage
}

var _ domain.Recorder = (*Ledger)(nil)

// NewLedger starts a ledger with the given queue size.
func NewLedger(queue int) *Ledger {
	if queue <= 0 {
		queue = 1024
	}
	l := &Ledger{
		in:    make(chan record, queue),
		done:  make(chan struct{}),
		usage: make(map[domain.IdentityHash]*Usage),
	}
	go l.run()
	return l
}

// Record queues one accepted message.
func (l *Ledger) Record(sender, receiver domain.IdentityHash) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.in <- record{sender, receiver}:
	default:
		l.dropped.Add(1)
	}
}

func (l *Ledger) run() {
	for {
		select {
		case r := <-l.in:
			l.apply(r)
		case <-l.done:
			for {
				select {
				case r := <-l.in:
					l.apply(r)
				default:
					return
				}
			}
		}
	}
}

func (l *Ledger) apply(r record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.usage[r.sender]
	if !ok {
		u = &Usage{Recipients: make(map[domain.IdentityHash]uint64)}
		l.usage[r.sender] = u
	}
	u.Messages++
	u.Recipients[r.receiver]++
}

// Usage returns a copy of sender's tally.
func (l *Ledger) Usage(sender domain.IdentityHash) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.usage[sender]
	if !ok {
		return Usage{Recipients: map[domain.IdentityHash]uint64{}}
	}
	out := Usage{Messages: u.Messages, Recipients: make(map[domain.IdentityHash]uint64, len(u.Recipients))}
	for k, v := range u.Recipients {
		out.Recipients[k] = v
	}
	return out
}

// Dropped returns the number of events lost to a full queue.
func (l *Ledger) Dropped() uint64 { return l.dropped.Load() }

// Close stops the ledger after applying queued events.
func (l *Ledger) Close() {
	l.once.Do(func() { close(l.done) })
}
