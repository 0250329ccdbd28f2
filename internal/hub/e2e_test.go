package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blindrelay/internal/domain"
	"blindrelay/internal/hub"
	"blindrelay/internal/services/message"
)

type events struct {
	mu  sync.Mutex
	set map[string]int
}

func (e *events) add(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set[name]++
}

func (e *events) snapshot() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.set))
	for k, v := range e.set {
		out[k] = v
	}
	return out
}

func TestEndToEnd_AliceAndBobOverWebsocket(t *testing.T) {
	alice, bob := newIdentity(t), newIdentity(t)

	srv, err := hub.New(hub.Options{Identity: newIdentity(t), Address: "ws://placeholder"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	ev := &events{set: make(map[string]int)}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	aliceSvc, err := message.Connect(ctx, url, message.Options{
		Identity: alice,
		Handler: func(_ context.Context, m domain.IncomingMessage) error {
			var s string
			if !assert.NoError(t, json.Unmarshal(m.Payload, &s)) ||
				!assert.Equal(t, bob.Public(), m.From) ||
				!assert.Equal(t, "hello Alice...", s) {
				return errors.New("unexpected message")
			}
			ev.add("bob->alice")
			return nil
		},
	})
	require.NoError(t, err)
	defer aliceSvc.Close()

	bobSvc, err := message.Connect(ctx, url, message.Options{
		Identity: bob,
		Handler: func(_ context.Context, m domain.IncomingMessage) error {
			var p struct {
				Text string `json:"text"`
			}
			if !assert.NoError(t, json.Unmarshal(m.Payload, &p)) ||
				!assert.Equal(t, alice.Public(), m.From) ||
				!assert.Equal(t, "hello Bob!...", p.Text) {
				return errors.New("unexpected message")
			}
			ev.add("alice->bob")
			return nil
		},
	})
	require.NoError(t, err)
	defer bobSvc.Close()

	toBob := aliceSvc.SendAsync(ctx, bob.Public(), map[string]string{"text": "hello Bob!..."})
	toAlice := bobSvc.SendAsync(ctx, alice.Public(), "hello Alice...")

	require.NoError(t, <-toBob)
	ev.add("alice-acked")
	require.NoError(t, <-toAlice)
	ev.add("bob-acked")

	require.Equal(t, map[string]int{
		"alice->bob":  1,
		"bob->alice":  1,
		"alice-acked": 1,
		"bob-acked":   1,
	}, ev.snapshot())
	require.Zero(t, aliceSvc.Pending())
	require.Zero(t, bobSvc.Pending())
}

func TestServe_ListenerAndMetrics(t *testing.T) {
	metricsLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsAddr := metricsLn.Addr().String()
	require.NoError(t, metricsLn.Close())

	srv, err := hub.New(hub.Options{
		Identity:      newIdentity(t),
		Address:       "ws://placeholder",
		MetricsListen: metricsAddr,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dcancel()
	c, err := message.Connect(dctx, "ws://"+ln.Addr().String(), message.Options{Identity: newIdentity(t)})
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client not disconnected on shutdown")
	}
}
