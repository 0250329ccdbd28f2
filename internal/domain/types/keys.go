package types

import (
	"errors"

	"github.com/mr-tron/base58"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// PublicKeySize is the length of the binary form of a PublicKey.
const PublicKeySize = 64

// ErrInvalidPublicKey is returned when a public key cannot be decoded.
var ErrInvalidPublicKey = errors.New("invalid public key encoding")

// PublicKey is the public half of an Identity: the signing key followed by
// the encryption key. It travels on the wire as a single base58 string.
type PublicKey struct {
	Sign Ed25519Public
	Box  X25519Public
}

// Bytes returns sign || box.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, 0, PublicKeySize)
	out = append(out, p.Sign[:]...)
	return append(out, p.Box[:]...)
}

// IsZero reports whether p is the zero key.
func (p PublicKey) IsZero() bool { return p == PublicKey{} }

// String returns the base58 text form.
func (p PublicKey) String() string { return base58.Encode(p.Bytes()) }

// MarshalText implements encoding.TextMarshaler.
func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePublicKey decodes the base58 text form of a public key.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != PublicKeySize {
		return PublicKey{}, ErrInvalidPublicKey
	}
	var out PublicKey
	copy(out.Sign[:], b[:32])
	copy(out.Box[:], b[32:])
	return out, nil
}
