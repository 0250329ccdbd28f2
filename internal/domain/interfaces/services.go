package interfaces

import (
	"context"

	domaintypes "blindrelay/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.IdentityHash,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	IdentityHash(passphrase string) (domaintypes.IdentityHash, error)
}

// MessageSender is the send side shared by the client connection and the
// acknowledgement layer stacked on top of it.
type MessageSender interface {
	Send(ctx context.Context, to domaintypes.PublicKey, payload any) error
	Close() error
}

// PresenceDirectory records which hubs currently host an identity.
type PresenceDirectory interface {
	AddToSet(ctx context.Context, id domaintypes.IdentityHash, hub domaintypes.HubAddress) error
	RemoveFromSet(ctx context.Context, id domaintypes.IdentityHash, hub domaintypes.HubAddress) error
	GetSetOrEmpty(ctx context.Context, id domaintypes.IdentityHash) ([]domaintypes.HubAddress, error)
}

// SendPolicy decides whether sender may message receiver.
type SendPolicy interface {
	CanSend(sender, receiver domaintypes.IdentityHash) bool
}

// Recorder observes accepted messages for rate limiting and billing. Record
// must not block.
type Recorder interface {
	Record(sender, receiver domaintypes.IdentityHash)
}
