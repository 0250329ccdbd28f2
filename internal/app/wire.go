package app

import (
	"blindrelay/internal/domain"
	identitysvc "blindrelay/internal/services/identity"
	"blindrelay/internal/store"
)

// Wire bundles the stores and services the CLI needs.
type Wire struct {
	IdentityStore *store.IdentityFileStore
	IDs           domain.IdentityService
	Contacts      domain.ContactStore
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) *Wire {
	identityStore := store.NewIdentityFileStore(cfg.Home)
	return &Wire{
		IdentityStore: identityStore,
		IDs:           identitysvc.New(identityStore),
		Contacts:      store.NewContactFileStore(cfg.Home),
	}
}
