package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
)

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage saved contacts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <alias> <public-key>",
		Short: "Save a peer's public key under an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := appCtx.AddContact(domain.Alias(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", c.Alias, crypto.HashPublicKey(c.PublicKey).Short())
			return nil
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "Print saved contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := appCtx.Contacts.ListContacts()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range contacts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Alias, crypto.HashPublicKey(c.PublicKey), c.PublicKey)
			}
			return w.Flush()
		},
	})
	return cmd
}
