package crypto_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
)

func TestSealShort_RoundTrip(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	msg := []byte("hello through the hub")
	sealed, err := crypto.SealShort(pub, msg)
	require.NoError(t, err)
	require.Len(t, sealed, crypto.ShortSealSize)

	got, err := crypto.Open(priv, sealed)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestSealShort_ConstantSize(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	a, err := crypto.SealShort(pub, nil)
	require.NoError(t, err)
	b, err := crypto.SealShort(pub, bytes.Repeat([]byte{7}, crypto.MaxShortPlaintext))
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
}

func TestSealShort_PlaintextTooLong(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	_, err = crypto.SealShort(pub, make([]byte, crypto.MaxShortPlaintext+1))
	require.ErrorIs(t, err, crypto.ErrPlaintextTooLong)
}

func TestSeal_LongMessageUsesHybridPath(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	msg := []byte(strings.Repeat("a long message that needs the hybrid path. ", 512))
	sealed, err := crypto.Seal(pub, msg)
	require.NoError(t, err)
	require.Greater(t, len(sealed), crypto.ShortSealSize)

	got, err := crypto.Open(priv, sealed)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestOpen_WrongRecipientFails(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	other, _, err := crypto.GenerateX25519()
	require.NoError(t, err)

	for _, size := range []int{16, 4096} {
		sealed, err := crypto.Seal(pub, make([]byte, size))
		require.NoError(t, err)
		_, err = crypto.Open(other, sealed)
		require.ErrorIs(t, err, crypto.ErrDecrypt)
	}
}

func TestOpen_TamperedFails(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	sealed, err := crypto.Seal(pub, make([]byte, 2048))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	_, err = crypto.Open(priv, sealed)
	require.ErrorIs(t, err, crypto.ErrDecrypt)

	_, err = crypto.Open(priv, []byte{0x09, 1, 2, 3})
	require.ErrorIs(t, err, crypto.ErrMalformedSeal)
}
