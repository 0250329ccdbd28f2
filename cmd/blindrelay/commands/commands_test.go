package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/hub"
	"blindrelay/internal/services/message"
)

const testPassphrase = "Correct-Horse-9!"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInitAndFingerprint(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, "--home", home, "init")
	require.ErrorIs(t, err, errPassphraseRequired)

	out, err := execute(t, "--home", home, "-p", testPassphrase, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Identity created.")

	_, err = execute(t, "--home", home, "-p", testPassphrase, "init")
	require.ErrorIs(t, err, errIdentityExists)

	fp, err := execute(t, "--home", home, "-p", testPassphrase, "fingerprint")
	require.NoError(t, err)
	require.Equal(t, strings.TrimPrefix(out, "Identity created.\n"), fp)
}

func TestContacts(t *testing.T) {
	home := t.TempDir()
	bob, err := crypto.NewIdentity()
	require.NoError(t, err)

	_, err = execute(t, "--home", home, "contact", "add", "bob", "garbage")
	require.ErrorIs(t, err, domain.ErrInvalidPublicKey)

	out, err := execute(t, "--home", home, "contact", "add", "bob", bob.Public().String())
	require.NoError(t, err)
	require.Contains(t, out, "Saved bob")

	out, err = execute(t, "--home", home, "contact", "list")
	require.NoError(t, err)
	require.Contains(t, out, bob.Public().String())
	require.Contains(t, out, string(crypto.HashPublicKey(bob.Public())))
}

func TestSend(t *testing.T) {
	hubID, err := crypto.NewIdentity()
	require.NoError(t, err)
	srv, err := hub.New(hub.Options{Identity: hubID, Address: "ws://hub.test"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	bobID, err := crypto.NewIdentity()
	require.NoError(t, err)
	got := make(chan string, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bob, err := message.Connect(ctx, url, message.Options{
		Identity: bobID,
		Handler: func(_ context.Context, m domain.IncomingMessage) error {
			var s string
			if err := json.Unmarshal(m.Payload, &s); err != nil {
				return err
			}
			got <- s
			return nil
		},
	})
	require.NoError(t, err)
	defer bob.Close()

	home := t.TempDir()
	_, err = execute(t, "--home", home, "-p", testPassphrase, "init")
	require.NoError(t, err)
	_, err = execute(t, "--home", home, "contact", "add", "bob", bobID.Public().String())
	require.NoError(t, err)

	_, err = execute(t, "--home", home, "-p", testPassphrase, "send", "bob", "hi")
	require.Error(t, err, "no hub configured")

	_, err = execute(t, "--home", home, "-p", testPassphrase, "send", "carol", "hi")
	require.Error(t, err)

	out, err := execute(t, "--home", home, "-p", testPassphrase, "--hub", url, "--ack-timeout", "3s", "send", "bob", "hi")
	require.NoError(t, err)
	require.Contains(t, out, "delivered")
	require.Equal(t, "hi", <-got)
}
