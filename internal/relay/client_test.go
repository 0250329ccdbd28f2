package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/protocol/envelope"
	"blindrelay/internal/protocol/handshake"
	"blindrelay/internal/relay"
	"blindrelay/internal/wire"
)

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	return id
}

func writeFrame(t *testing.T, c domain.Conn, typ domain.FrameType, payload any) {
	t.Helper()
	b, err := wire.Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, c.WriteFrame(context.Background(), b))
}

func readFrame(t *testing.T, c domain.Conn) domain.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := c.ReadFrame(ctx)
	require.NoError(t, err)
	f, err := wire.Decode(b)
	require.NoError(t, err)
	return f
}

// fakeHub plays the hub side of the handshake; accept decides the answer.
func fakeHub(t *testing.T, hub domain.Conn, accept bool) {
	t.Helper()
	writeFrame(t, hub, domain.FrameChallenge, domain.ChallengePayload{Challenge: "c-123"})
	f := readFrame(t, hub)
	require.Equal(t, domain.FrameIdentify, f.Type)
	p, err := wire.Payload[domain.IdentifyPayload](f)
	require.NoError(t, err)
	require.True(t, handshake.Validate("c-123", p))
	if accept {
		writeFrame(t, hub, domain.FrameValidated, nil)
	} else {
		writeFrame(t, hub, domain.FrameBadAuth, nil)
	}
}

type startResult struct {
	c   *relay.Client
	err error
}

func start(conn domain.Conn, opts relay.Options) <-chan startResult {
	ch := make(chan startResult, 1)
	go func() {
		c, err := relay.Start(context.Background(), conn, opts)
		ch <- startResult{c, err}
	}()
	return ch
}

func TestClient_Validated(t *testing.T) {
	alice := newIdentity(t)
	clientEnd, hubEnd := wire.Pipe()

	res := start(clientEnd, relay.Options{Identity: alice})
	fakeHub(t, hubEnd, true)

	r := <-res
	require.NoError(t, r.err)
	defer r.c.Close()
	require.Equal(t, relay.Validated, r.c.State())
	require.Equal(t, crypto.HashPublicKey(alice.Public()), r.c.Hash())
}

func TestClient_BadAuth(t *testing.T) {
	closed := make(chan error, 1)
	clientEnd, hubEnd := wire.Pipe()

	res := start(clientEnd, relay.Options{
		Identity: newIdentity(t),
		OnClose:  func(err error) { closed <- err },
	})
	fakeHub(t, hubEnd, false)

	r := <-res
	require.ErrorIs(t, r.err, relay.ErrBadAuthentication)
	require.ErrorIs(t, <-closed, relay.ErrBadAuthentication)
}

func TestClient_HandshakeTimeout(t *testing.T) {
	clientEnd, _ := wire.Pipe()

	_, err := relay.Start(context.Background(), clientEnd, relay.Options{
		Identity:         newIdentity(t),
		HandshakeTimeout: 30 * time.Millisecond,
	})
	require.ErrorIs(t, err, relay.ErrHandshakeTimeout)
}

func TestClient_SendAndReceive(t *testing.T) {
	alice, bob := newIdentity(t), newIdentity(t)
	got := make(chan domain.VerifiedMessage, 1)
	clientEnd, hubEnd := wire.Pipe()

	res := start(clientEnd, relay.Options{
		Identity:  alice,
		OnMessage: func(m domain.VerifiedMessage) { got <- m },
	})
	fakeHub(t, hubEnd, true)
	r := <-res
	require.NoError(t, r.err)
	defer r.c.Close()

	require.NoError(t, r.c.Send(context.Background(), bob.Public(), "hi bob"))
	f := readFrame(t, hubEnd)
	require.Equal(t, domain.FrameMessage, f.Type)
	out, err := wire.Payload[domain.MessagePayload](f)
	require.NoError(t, err)
	require.Equal(t, crypto.HashPublicKey(bob.Public()), out.To)
	require.Empty(t, out.From)

	env, err := envelope.EncryptAndSign(alice.Public(), bob, "hi alice")
	require.NoError(t, err)
	writeFrame(t, hubEnd, domain.FrameMessage, domain.MessagePayload{
		To:      r.c.Hash(),
		From:    crypto.HashPublicKey(bob.Public()),
		Payload: env,
	})

	select {
	case m := <-got:
		require.Equal(t, bob.Public(), m.From)
		s, err := envelope.Decode[string](m)
		require.NoError(t, err)
		require.Equal(t, "hi alice", s)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestClient_DropsForgedMessages(t *testing.T) {
	alice, bob, mallory := newIdentity(t), newIdentity(t), newIdentity(t)
	got := make(chan domain.VerifiedMessage, 4)
	clientEnd, hubEnd := wire.Pipe()

	res := start(clientEnd, relay.Options{
		Identity:  alice,
		OnMessage: func(m domain.VerifiedMessage) { got <- m },
	})
	fakeHub(t, hubEnd, true)
	r := <-res
	require.NoError(t, r.err)
	defer r.c.Close()

	// Tampered cipher.
	env, err := envelope.EncryptAndSign(alice.Public(), bob, "tampered")
	require.NoError(t, err)
	env.Cipher[5] ^= 0xff
	writeFrame(t, hubEnd, domain.FrameMessage, domain.MessagePayload{To: r.c.Hash(), Payload: env})

	// Hub-stamped sender disagrees with the signer.
	env, err = envelope.EncryptAndSign(alice.Public(), bob, "spoofed")
	require.NoError(t, err)
	writeFrame(t, hubEnd, domain.FrameMessage, domain.MessagePayload{
		To:      r.c.Hash(),
		From:    crypto.HashPublicKey(mallory.Public()),
		Payload: env,
	})

	// Garbage.
	require.NoError(t, hubEnd.WriteFrame(context.Background(), []byte("{")))

	// Finally a good one, which must be the only delivery.
	env, err = envelope.EncryptAndSign(alice.Public(), bob, "good")
	require.NoError(t, err)
	writeFrame(t, hubEnd, domain.FrameMessage, domain.MessagePayload{To: r.c.Hash(), Payload: env})

	select {
	case m := <-got:
		s, err := envelope.Decode[string](m)
		require.NoError(t, err)
		require.Equal(t, "good", s)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	require.Empty(t, got)
	require.Equal(t, relay.Validated, r.c.State())
}

func TestClient_CloseFiresOnce(t *testing.T) {
	var calls int
	closed := make(chan struct{}, 2)
	clientEnd, hubEnd := wire.Pipe()

	res := start(clientEnd, relay.Options{
		Identity: newIdentity(t),
		OnClose: func(err error) {
			calls++
			closed <- struct{}{}
		},
	})
	fakeHub(t, hubEnd, true)
	r := <-res
	require.NoError(t, r.err)

	require.NoError(t, hubEnd.Close())
	<-r.c.Done()
	require.NoError(t, r.c.Close())
	<-closed

	require.Equal(t, 1, calls)
	require.Equal(t, relay.Closed, r.c.State())
	require.ErrorIs(t, r.c.Err(), wire.ErrClosed)
	require.ErrorIs(t, r.c.Send(context.Background(), newIdentity(t).Public(), "x"), relay.ErrClosed)
}
