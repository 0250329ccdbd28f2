package presence

import (
	"context"
	"sort"
	"sync"

	"blindrelay/internal/domain"
)

// Memory is an in-memory domain.PresenceDirectory.
type Memory struct {
	mu   sync.RWMutex
	sets map[domain.IdentityHash]map[domain.HubAddress]struct{}
}

var _ domain.PresenceDirectory = (*Memory)(nil)

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{sets: make(map[domain.IdentityHash]map[domain.HubAddress]struct{})}
}

// AddToSet records that hub hosts id.
func (m *Memory) AddToSet(_ context.Context, id domain.IdentityHash, hub domain.HubAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		set = make(map[domain.HubAddress]struct{})
		m.sets[id] = set
	}
	set[hub] = struct{}{}
	return nil
}

// RemoveFromSet forgets that hub hosts id.
func (m *Memory) RemoveFromSet(_ context.Context, id domain.IdentityHash, hub domain.HubAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil
	}
	delete(set, hub)
	if len(set) == 0 {
		delete(m.sets, id)
	}
	return nil
}

// GetSetOrEmpty returns the hubs hosting id, sorted.
func (m *Memory) GetSetOrEmpty(_ context.Context, id domain.IdentityHash) ([]domain.HubAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HubAddress, 0, len(m.sets[id]))
	for hub := range m.sets[id] {
		out = append(out, hub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
