package crypto

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"

	"blindrelay/internal/domain"
)

const identityHashContext = "blindrelay-id"

// HashPublicKey returns the identity hash of pub.
//
// It hashes the domain-separated signing and encryption keys with SHA-256
// and encodes the digest in base58.
func HashPublicKey(pub domain.PublicKey) domain.IdentityHash {
	h := sha256.New()
	h.Write([]byte(identityHashContext))
	h.Write(pub.Bytes())
	return domain.IdentityHash(base58.Encode(h.Sum(nil)))
}

// SameIdentity reports whether a and b hash to the same identity.
func SameIdentity(a, b domain.PublicKey) bool {
	return HashPublicKey(a) == HashPublicKey(b)
}
