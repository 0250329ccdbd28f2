package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
)

// listen prints every incoming message until interrupted or disconnected.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print incoming messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			names, err := contactNames()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			conn, err := appCtx.Connect(ctx, passphrase, func(_ context.Context, m domain.IncomingMessage) error {
				from, ok := names[crypto.HashPublicKey(m.From)]
				if !ok {
					from = m.From.String()
				}
				text := string(m.Payload)
				var s string
				if json.Unmarshal(m.Payload, &s) == nil {
					text = s
				}
				mu.Lock()
				defer mu.Unlock()
				_, err := fmt.Fprintf(out, "[%s] %s\n", from, text)
				return err
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "listening, press Ctrl-C to stop")
			select {
			case <-ctx.Done():
				return nil
			case <-conn.Done():
				return fmt.Errorf("connection to %s closed", appCtx.Config().HubURL)
			}
		},
	}
}

func contactNames() (map[domain.IdentityHash]string, error) {
	contacts, err := appCtx.Contacts.ListContacts()
	if err != nil {
		return nil, err
	}
	out := make(map[domain.IdentityHash]string, len(contacts))
	for _, c := range contacts {
		out[crypto.HashPublicKey(c.PublicKey)] = c.Alias.String()
	}
	return out, nil
}
