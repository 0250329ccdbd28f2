package types

import "encoding/json"

// FrameType names a wire frame.
type FrameType string

// Frame types exchanged between clients and hubs, and between hubs.
const (
	FrameChallenge    FrameType = "challenge"
	FrameIdentify     FrameType = "id"
	FrameValidated    FrameType = "validated"
	FrameBadAuth      FrameType = "bad-auth"
	FrameMessage      FrameType = "message"
	FrameHubIdentify  FrameType = "hub-id"
	FrameHubValidated FrameType = "hub-validated"
	FrameBadHubAuth   FrameType = "bad-hub-auth"
	FrameRelay        FrameType = "relay"
)

// Frame is one transport message.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChallengePayload is sent by a hub on every new socket.
type ChallengePayload struct {
	Challenge string `json:"challenge"`
}

// IdentifyPayload proves possession of the private key behind PublicKey.
type IdentifyPayload struct {
	PublicKey   PublicKey `json:"publicKey"`
	Certificate []byte    `json:"certificate"`
}

// HubIdentifyPayload is the hub-to-hub variant of IdentifyPayload. Address
// is the identifying hub's public URL.
type HubIdentifyPayload struct {
	PublicKey   PublicKey  `json:"publicKey"`
	Certificate []byte     `json:"certificate"`
	Address     HubAddress `json:"address"`
}

// MessagePayload carries an envelope between a client and its hub. From is
// set by the hub on delivery and ignored when received from a client.
type MessagePayload struct {
	To      IdentityHash   `json:"to"`
	From    IdentityHash   `json:"from,omitempty"`
	Payload SecureEnvelope `json:"payload"`
}

// RelayPayload carries an envelope between hubs.
type RelayPayload struct {
	To      IdentityHash   `json:"to"`
	From    IdentityHash   `json:"from"`
	Payload SecureEnvelope `json:"payload"`
}
