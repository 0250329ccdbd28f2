package identity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/services/identity"
)

type memStore struct {
	pass string
	id   *domain.Identity
}

func (m *memStore) SaveIdentity(passphrase string, id domain.Identity) error {
	m.pass, m.id = passphrase, &id
	return nil
}

func (m *memStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	if m.id == nil || passphrase != m.pass {
		return domain.Identity{}, errors.New("bad passphrase")
	}
	return *m.id, nil
}

const goodPass = "Correct-Horse-9"

func TestGenerateIdentity(t *testing.T) {
	s := identity.New(&memStore{})

	id, hash, err := s.GenerateIdentity(goodPass)
	require.NoError(t, err)
	require.Equal(t, crypto.HashPublicKey(id.Public()), hash)

	loaded, err := s.LoadIdentity(goodPass)
	require.NoError(t, err)
	require.Equal(t, id, loaded)

	got, err := s.IdentityHash(goodPass)
	require.NoError(t, err)
	require.Equal(t, hash, got)

	_, err = s.IdentityHash("wrong")
	require.Error(t, err)
}

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	s := identity.New(&memStore{})
	for _, p := range []string{"short", "alllowercase123!", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := s.GenerateIdentity(p)
		require.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
}
