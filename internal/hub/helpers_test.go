package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/hub"
	"blindrelay/internal/presence"
	"blindrelay/internal/protocol/handshake"
	"blindrelay/internal/relay"
	"blindrelay/internal/wire"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// network is a set of in-process hubs sharing a presence directory and a
// dialer.
type network struct {
	dialer   *wire.MemoryDialer
	presence *presence.Memory
}

func newNetwork() *network {
	return &network{dialer: wire.NewMemoryDialer(), presence: presence.NewMemory()}
}

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	id, err := crypto.NewIdentity()
	require.NoError(t, err)
	return id
}

func (n *network) hub(t *testing.T, addr domain.HubAddress, mutate ...func(*hub.Options)) *hub.Server {
	t.Helper()
	opts := hub.Options{
		Identity:         newIdentity(t),
		Address:          addr,
		Presence:         n.presence,
		Dialer:           n.dialer,
		HandshakeTimeout: waitFor,
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := hub.New(opts)
	require.NoError(t, err)
	n.dialer.Register(string(addr), func(c domain.Conn) {
		_ = srv.ServeConn(context.Background(), c)
	})
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func (n *network) client(t *testing.T, addr domain.HubAddress, id domain.Identity, got chan<- domain.VerifiedMessage) *relay.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	c, err := relay.Dial(ctx, string(addr), relay.Options{
		Identity: id,
		Dialer:   n.dialer,
		OnMessage: func(m domain.VerifiedMessage) {
			if got != nil {
				got <- m
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// raw opens an unauthenticated socket to srv.
func raw(t *testing.T, srv *hub.Server) domain.Conn {
	t.Helper()
	client, server := wire.Pipe()
	go func() { _ = srv.ServeConn(context.Background(), server) }()
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func send(t *testing.T, c domain.Conn, typ domain.FrameType, payload any) {
	t.Helper()
	b, err := wire.Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, c.WriteFrame(context.Background(), b))
}

func recv(t *testing.T, c domain.Conn) domain.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	b, err := c.ReadFrame(ctx)
	require.NoError(t, err)
	f, err := wire.Decode(b)
	require.NoError(t, err)
	return f
}

func challenge(t *testing.T, c domain.Conn) string {
	t.Helper()
	f := recv(t, c)
	require.Equal(t, domain.FrameChallenge, f.Type)
	p, err := wire.Payload[domain.ChallengePayload](f)
	require.NoError(t, err)
	return p.Challenge
}

// login authenticates a raw socket as id.
func login(t *testing.T, c domain.Conn, id domain.Identity) {
	t.Helper()
	send(t, c, domain.FrameIdentify, handshake.Certify(id, challenge(t, c)))
	require.Equal(t, domain.FrameValidated, recv(t, c).Type)
}

func expectClosed(t *testing.T, c domain.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	for {
		if _, err := c.ReadFrame(ctx); err != nil {
			require.ErrorIs(t, err, wire.ErrClosed)
			return
		}
	}
}

func receive(t *testing.T, ch <-chan domain.VerifiedMessage) domain.VerifiedMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(waitFor):
		t.Fatal("no message delivered")
		return domain.VerifiedMessage{}
	}
}

func messagePayload(f domain.Frame) (domain.MessagePayload, error) {
	return wire.Payload[domain.MessagePayload](f)
}
