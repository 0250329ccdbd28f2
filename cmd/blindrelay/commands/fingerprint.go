package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"blindrelay/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity hash and public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := appCtx.IDs.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			pub := id.Public()
			fmt.Fprintf(cmd.OutOrStdout(), "Identity:   %s\nPublic key: %s\n", crypto.HashPublicKey(pub), pub)
			return nil
		},
	}
	return cmd
}
