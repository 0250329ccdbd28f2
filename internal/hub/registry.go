package hub

import (
	"sync"

	"blindrelay/internal/domain"
)

// Registry maps an identity hash to its live, authenticated local sockets.
// An identity is present only while its set is non-empty.
type Registry struct {
	mu      sync.RWMutex
	sockets map[domain.IdentityHash]map[*Session]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sockets: make(map[domain.IdentityHash]map[*Session]struct{})}
}

// Add binds s to id. It reports whether s is the identity's first socket.
func (r *Registry) Add(id domain.IdentityHash, s *Session) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sockets[id]
	if !ok {
		set = make(map[*Session]struct{})
		r.sockets[id] = set
	}
	set[s] = struct{}{}
	return !ok
}

// Remove unbinds s from id. It reports whether id has no sockets left; it
// reports false when s was not bound.
func (r *Registry) Remove(id domain.IdentityHash, s *Session) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sockets[id]
	if !ok {
		return false
	}
	if _, bound := set[s]; !bound {
		return false
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sockets, id)
		return true
	}
	return false
}

// Lookup returns a snapshot of id's sockets. It is empty, not an error, when
// the identity has no local socket.
func (r *Registry) Lookup(id domain.IdentityHash) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.sockets[id]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Len returns the number of identities with at least one socket.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets)
}
