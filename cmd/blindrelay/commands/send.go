package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a contact or public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			to, err := appCtx.ResolveRecipient(args[0])
			if err != nil {
				return err
			}

			conn, err := appCtx.Connect(cmd.Context(), passphrase, nil)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Send(cmd.Context(), to, args[1]); err != nil {
				return fmt.Errorf("send to %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "delivered")
			return nil
		},
	}
	return cmd
}
