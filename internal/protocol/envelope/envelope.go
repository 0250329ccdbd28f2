package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
)

var (
	// ErrSignatureDoesNotMatch is returned when the envelope signature is not
	// valid over its cipher under its signer.
	ErrSignatureDoesNotMatch = errors.New("signature does not match")

	// ErrMessageNotFromSigner is returned when the decrypted sender claim is
	// not the hash of the envelope signer.
	ErrMessageNotFromSigner = errors.New("message not from signer")
)

// plaintext is the structure sealed inside every envelope.
type plaintext struct {
	From domain.IdentityHash `json:"from"`
	Data json.RawMessage     `json:"data"`
}

// EncryptAndSign seals payload for recipient and signs the ciphertext with
// the sender's signing key.
func EncryptAndSign(recipient domain.PublicKey, sender domain.Identity, payload any) (domain.SecureEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.SecureEnvelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	pt, err := json.Marshal(plaintext{
		From: crypto.HashPublicKey(sender.Public()),
		Data: data,
	})
	if err != nil {
		return domain.SecureEnvelope{}, err
	}

	cipher, err := crypto.Seal(recipient.Box, pt)
	if err != nil {
		return domain.SecureEnvelope{}, fmt.Errorf("seal: %w", err)
	}
	return domain.SecureEnvelope{
		Cipher:    cipher,
		Signature: crypto.SignEd25519(sender.EdPriv, cipher),
		Signer:    sender.Public(),
	}, nil
}

// VerifyAndDecrypt authenticates env and opens it with the receiver's keys.
func VerifyAndDecrypt(receiver domain.Identity, env domain.SecureEnvelope) (domain.VerifiedMessage, error) {
	if !crypto.VerifyEd25519(env.Signer.Sign, env.Cipher, env.Signature) {
		return domain.VerifiedMessage{}, ErrSignatureDoesNotMatch
	}

	raw, err := crypto.Open(receiver.XPriv, env.Cipher)
	if err != nil {
		return domain.VerifiedMessage{}, fmt.Errorf("open: %w", err)
	}

	var pt plaintext
	if err := json.Unmarshal(raw, &pt); err != nil {
		return domain.VerifiedMessage{}, fmt.Errorf("decode plaintext: %w", err)
	}
	if pt.From != crypto.HashPublicKey(env.Signer) {
		return domain.VerifiedMessage{}, ErrMessageNotFromSigner
	}
	return domain.VerifiedMessage{From: env.Signer, Data: pt.Data}, nil
}

// Decode unmarshals the data of a verified message into T.
func Decode[T any](m domain.VerifiedMessage) (T, error) {
	var out T
	if err := json.Unmarshal(m.Data, &out); err != nil {
		return out, fmt.Errorf("decode data: %w", err)
	}
	return out, nil
}
