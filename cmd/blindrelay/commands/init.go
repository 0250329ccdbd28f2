package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	errPassphraseRequired = errors.New("passphrase required (-p)")
	errIdentityExists     = errors.New("identity already exists")
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			ok, err := appCtx.IdentityStore.Exists()
			if err != nil {
				return err
			}
			if ok {
				return fmt.Errorf("%w at %s", errIdentityExists, appCtx.IdentityStore.Path())
			}
			id, hash, err := appCtx.IDs.GenerateIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nIdentity:   %s\nPublic key: %s\n", hash, id.Public())
			return nil
		},
	}
}
