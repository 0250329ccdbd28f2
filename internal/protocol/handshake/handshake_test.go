package handshake_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
	"blindrelay/internal/protocol/handshake"
)

func TestCertifyValidate(t *testing.T) {
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	challenge, err := handshake.NewChallenge()
	require.NoError(t, err)
	require.Len(t, challenge, handshake.ChallengeLength)

	p := handshake.Certify(id, challenge)
	require.True(t, handshake.Validate(challenge, p))

	other, err := handshake.NewChallenge()
	require.NoError(t, err)
	require.False(t, handshake.Validate(other, p), "certificate must be bound to its challenge")
}

func TestValidate_ClaimedKeyMismatch(t *testing.T) {
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	impostor, err := crypto.NewIdentity()
	require.NoError(t, err)

	p := handshake.Certify(impostor, "abc")
	p.PublicKey = id.Public()
	require.False(t, handshake.Validate("abc", p))
}

func TestHubCertificateNotInterchangeable(t *testing.T) {
	id, err := crypto.NewIdentity()
	require.NoError(t, err)

	hub := handshake.CertifyHub(id, "ws://hub-a", "xyz")
	require.True(t, handshake.ValidateHub("xyz", hub))

	client := handshake.Certify(id, "xyz")
	hub.Certificate = client.Certificate
	require.False(t, handshake.ValidateHub("xyz", hub))

	hub = handshake.CertifyHub(id, "", "xyz")
	require.False(t, handshake.ValidateHub("xyz", hub))
}
