package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"blindrelay/internal/app"
	"blindrelay/internal/logging"
)

var (
	home       string
	passphrase string
	hubURL     string
	logLevel   string
	ackTimeout time.Duration
	appCtx     *app.App
)

// Execute runs the CLI.
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "blindrelay",
		Short:        "End-to-end encrypted messaging through untrusted hubs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".blindrelay")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), logLevel)
			if err != nil {
				return err
			}
			appCtx = app.New(app.Config{
				Home:       home,
				HubURL:     hubURL,
				AckTimeout: ackTimeout,
				Logger:     logger,
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.blindrelay)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&hubURL, "hub", "", "hub websocket URL (e.g. ws://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	root.PersistentFlags().DurationVar(&ackTimeout, "ack-timeout", 30*time.Second, "how long send waits for an ack")

	root.AddCommand(initCmd(), fingerprintCmd(), contactCmd(), sendCmd(), listenCmd())
	return root
}

func requirePassphrase() error {
	if passphrase == "" {
		return errPassphraseRequired
	}
	return nil
}
