package types

import "encoding/json"

// SecureEnvelope is a signed ciphertext carrying one application payload.
// Signature covers Cipher exactly as transmitted.
type SecureEnvelope struct {
	Cipher    []byte    `json:"cipher"`
	Signature []byte    `json:"signature"`
	Signer    PublicKey `json:"signer"`
}

// VerifiedMessage is what the codec returns after a successful
// verify-then-decrypt.
type VerifiedMessage struct {
	From PublicKey       `json:"from"`
	Data json.RawMessage `json:"data"`
}

// IncomingMessage is handed to application consumers.
type IncomingMessage struct {
	From    PublicKey       `json:"from"`
	Payload json.RawMessage `json:"payload"`
}
