package handshake

import (
	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
)

// ChallengeLength is the number of characters in a hub challenge.
const ChallengeLength = 32

const (
	clientLabel = "blindrelay-client-auth-v1:"
	hubLabel    = "blindrelay-hub-auth-v1:"
)

// NewChallenge returns a fresh random challenge.
func NewChallenge() (string, error) {
	return crypto.RandomString(ChallengeLength)
}

// Certify answers a hub challenge as a client.
func Certify(id domain.Identity, challenge string) domain.IdentifyPayload {
	return domain.IdentifyPayload{
		PublicKey:   id.Public(),
		Certificate: crypto.SignEd25519(id.EdPriv, []byte(clientLabel+challenge)),
	}
}

// Validate reports whether p proves possession of p.PublicKey for challenge.
func Validate(challenge string, p domain.IdentifyPayload) bool {
	if challenge == "" || p.PublicKey.IsZero() {
		return false
	}
	return crypto.VerifyEd25519(p.PublicKey.Sign, []byte(clientLabel+challenge), p.Certificate)
}

// CertifyHub answers a challenge as a hub reachable at addr.
func CertifyHub(id domain.Identity, addr domain.HubAddress, challenge string) domain.HubIdentifyPayload {
	return domain.HubIdentifyPayload{
		PublicKey:   id.Public(),
		Certificate: crypto.SignEd25519(id.EdPriv, []byte(hubLabel+challenge)),
		Address:     addr,
	}
}

// ValidateHub is the hub variant of Validate.
func ValidateHub(challenge string, p domain.HubIdentifyPayload) bool {
	if challenge == "" || p.PublicKey.IsZero() || p.Address == "" {
		return false
	}
	return crypto.VerifyEd25519(p.PublicKey.Sign, []byte(hubLabel+challenge), p.Certificate)
}
