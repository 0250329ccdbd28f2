package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"blindrelay/internal/domain"
	"blindrelay/internal/util/memzero"
)

const (
	modeShort byte = 0x01
	modeLong  byte = 0x02

	shortBlockSize = 512

	// MaxShortPlaintext is the largest plaintext SealShort accepts.
	MaxShortPlaintext = shortBlockSize - 2

	// ShortSealSize is the exact length of every short seal.
	ShortSealSize = 1 + 32 + shortBlockSize + chacha20poly1305.Overhead

	longKeySize = chacha20poly1305.KeySize
	sealInfo    = "blindrelay-seal-v1"
)

var (
	// ErrPlaintextTooLong is returned by SealShort when the plaintext exceeds
	// MaxShortPlaintext. Use SealLong or Seal instead.
	ErrPlaintextTooLong = errors.New("plaintext too long for direct encryption")

	// ErrMalformedSeal is returned when a sealed blob has the wrong shape.
	ErrMalformedSeal = errors.New("malformed sealed message")

	// ErrDecrypt is returned when authentication of a sealed blob fails.
	ErrDecrypt = errors.New("message authentication failed")
)

// Seal encrypts plaintext for recipient, choosing the short form when it
// fits and the hybrid long form otherwise.
func Seal(recipient domain.X25519Public, plaintext []byte) ([]byte, error) {
	if len(plaintext) <= MaxShortPlaintext {
		return SealShort(recipient, plaintext)
	}
	return SealLong(recipient, plaintext)
}

// Open decrypts a blob produced by Seal, SealShort or SealLong.
func Open(priv domain.X25519Private, sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, ErrMalformedSeal
	}
	switch sealed[0] {
	case modeShort:
		return OpenShort(priv, sealed)
	case modeLong:
		return OpenLong(priv, sealed)
	default:
		return nil, ErrMalformedSeal
	}
}

// SealShort encrypts up to MaxShortPlaintext bytes directly to recipient
// using an ephemeral X25519 key. The output is always ShortSealSize bytes.
func SealShort(recipient domain.X25519Public, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxShortPlaintext {
		return nil, ErrPlaintextTooLong
	}
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(ephPriv[:])

	key, err := sealKey(ephPriv, recipient, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	block := make([]byte, shortBlockSize)
	binary.BigEndian.PutUint16(block, uint16(len(plaintext)))
	copy(block[2:], plaintext)
	defer memzero.Zero(block)

	out := make([]byte, 0, ShortSealSize)
	out = append(out, modeShort)
	out = append(out, ephPub[:]...)
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the key is single-use
	return aead.Seal(out, nonce[:], block, ephPub[:]), nil
}

// OpenShort decrypts a short seal with the recipient's private key.
func OpenShort(priv domain.X25519Private, sealed []byte) ([]byte, error) {
	if len(sealed) != ShortSealSize || sealed[0] != modeShort {
		return nil, ErrMalformedSeal
	}
	var ephPub domain.X25519Public
	copy(ephPub[:], sealed[1:33])

	self, err := publicFromPrivate(priv)
	if err != nil {
		return nil, err
	}
	key, err := sealKey(priv, ephPub, ephPub, self)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	block, err := aead.Open(nil, nonce[:], sealed[33:], ephPub[:])
	if err != nil {
		return nil, ErrDecrypt
	}
	defer memzero.Zero(block)

	n := int(binary.BigEndian.Uint16(block))
	if n > MaxShortPlaintext {
		return nil, ErrMalformedSeal
	}
	return append([]byte(nil), block[2:2+n]...), nil
}

// SealLong encrypts plaintext of any length with a one-time XChaCha20-Poly1305
// key, and short-seals that key for recipient. Both travel in one blob.
func SealLong(recipient domain.X25519Public, plaintext []byte) ([]byte, error) {
	key := make([]byte, longKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	wrapped, err := SealShort(recipient, key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+len(wrapped)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, modeLong)
	out = append(out, wrapped...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, wrapped), nil
}

// OpenLong decrypts a blob produced by SealLong.
func OpenLong(priv domain.X25519Private, sealed []byte) ([]byte, error) {
	const header = 1 + ShortSealSize + chacha20poly1305.NonceSizeX
	if len(sealed) < header+chacha20poly1305.Overhead || sealed[0] != modeLong {
		return nil, ErrMalformedSeal
	}
	wrapped := sealed[1 : 1+ShortSealSize]
	key, err := OpenShort(priv, wrapped)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	if len(key) != longKeySize {
		return nil, ErrMalformedSeal
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := sealed[1+ShortSealSize : header]
	pt, err := aead.Open(nil, nonce, sealed[header:], wrapped)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

// sealKey derives the single-use AEAD key for one short seal. Both sides
// salt with (ephemeral public, recipient public).
func sealKey(
	priv domain.X25519Private,
	peer domain.X25519Public,
	ephPub domain.X25519Public,
	recipient domain.X25519Public,
) ([]byte, error) {
	shared, err := DH(priv, peer)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared[:])

	salt := make([]byte, 0, 64)
	salt = append(salt, ephPub[:]...)
	salt = append(salt, recipient[:]...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared[:], salt, []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}
