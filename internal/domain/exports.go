package domain

import (
	interfaces "blindrelay/internal/domain/interfaces"
	types "blindrelay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	IdentityHash       = types.IdentityHash
	Alias              = types.Alias
	HubAddress         = types.HubAddress
	Identity           = types.Identity
	PublicKey          = types.PublicKey
	X25519Public       = types.X25519Public
	X25519Private      = types.X25519Private
	Ed25519Public      = types.Ed25519Public
	Ed25519Private     = types.Ed25519Private
	SecureEnvelope     = types.SecureEnvelope
	VerifiedMessage    = types.VerifiedMessage
	IncomingMessage    = types.IncomingMessage
	Contact            = types.Contact
	Frame              = types.Frame
	FrameType          = types.FrameType
	ChallengePayload   = types.ChallengePayload
	IdentifyPayload    = types.IdentifyPayload
	HubIdentifyPayload = types.HubIdentifyPayload
	MessagePayload     = types.MessagePayload
	RelayPayload       = types.RelayPayload
)

// Frame type constants re-exported for callers that only import domain.
const (
	FrameChallenge    = types.FrameChallenge
	FrameIdentify     = types.FrameIdentify
	FrameValidated    = types.FrameValidated
	FrameBadAuth      = types.FrameBadAuth
	FrameMessage      = types.FrameMessage
	FrameHubIdentify  = types.FrameHubIdentify
	FrameHubValidated = types.FrameHubValidated
	FrameBadHubAuth   = types.FrameBadHubAuth
	FrameRelay        = types.FrameRelay
)

// ParsePublicKey decodes the base58 text form of a public key.
var ParsePublicKey = types.ParsePublicKey

// ErrInvalidPublicKey is returned by ParsePublicKey.
var ErrInvalidPublicKey = types.ErrInvalidPublicKey

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Conn              = interfaces.Conn
	Dialer            = interfaces.Dialer
	IdentityService   = interfaces.IdentityService
	MessageSender     = interfaces.MessageSender
	PresenceDirectory = interfaces.PresenceDirectory
	SendPolicy        = interfaces.SendPolicy
	Recorder          = interfaces.Recorder
	IdentityStore     = interfaces.IdentityStore
	ContactStore      = interfaces.ContactStore
)
