package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"blindrelay/internal/domain"
	"blindrelay/internal/hub"
	"blindrelay/internal/hub/config"
	"blindrelay/internal/logging"
	"blindrelay/internal/policy"
	"blindrelay/internal/presence"
	identitysvc "blindrelay/internal/services/identity"
	"blindrelay/internal/store"
)

const (
	passphraseEnv = "BLINDRELAY_HUB_PASSPHRASE"

	limiterIdleTTL = 10 * time.Minute
	ledgerQueue    = 1024
)

var errNoPassphrase = fmt.Errorf("%s is not set", passphraseEnv)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:          "hub",
		Short:        "Run a blindrelay hub",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, os.Getenv(passphraseEnv))
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "hub.toml", "configuration file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, passphrase string) error {
	logger, logCloser, err := logging.OpenFile(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	id, err := hubIdentity(cfg.Server.DataDir, passphrase, logger)
	if err != nil {
		return err
	}

	addr := domain.HubAddress(cfg.Server.PublicURL)
	dir, dirCloser, err := openPresence(ctx, cfg, addr, logger)
	if err != nil {
		return err
	}
	defer dirCloser.Close()

	ledger := policy.NewLedger(ledgerQueue)
	defer ledger.Close()

	opts := hub.Options{
		Identity:         id,
		Address:          addr,
		Listen:           cfg.Server.Listen,
		MetricsListen:    cfg.Metrics.Listen,
		Presence:         dir,
		Recorder:         ledger,
		TrustedHubs:      cfg.TrustedHubs(),
		HandshakeTimeout: cfg.HandshakeTimeout(),
		DialTimeout:      cfg.DialTimeout(),
		DialBackoff:      cfg.DialBackoff(),
		OutboundQueue:    cfg.Server.OutboundQueue,
		Logger:           logger,
	}
	if l := policy.NewRateLimiter(cfg.Limits.SendRatePerSecond, cfg.Limits.Burst, limiterIdleTTL); l != nil {
		opts.Policy = l
	}

	srv, err := hub.New(opts)
	if err != nil {
		return err
	}
	logger.Info("starting hub",
		"address", addr,
		"identity", srv.Hash(),
		"publicKey", id.Public().String(),
		"presence", cfg.Presence.Backend,
	)
	err = srv.ListenAndServe(ctx)
	logger.Info("hub stopped", "dropped_records", ledger.Dropped())
	return err
}

// hubIdentity unlocks the hub key in dir, creating it on first use.
func hubIdentity(dir, passphrase string, logger *log.Logger) (domain.Identity, error) {
	if passphrase == "" {
		return domain.Identity{}, errNoPassphrase
	}
	keys := store.NewIdentityFileStore(dir)
	ids := identitysvc.New(keys)

	ok, err := keys.Exists()
	if err != nil {
		return domain.Identity{}, err
	}
	if ok {
		return ids.LoadIdentity(passphrase)
	}
	id, hash, err := ids.GenerateIdentity(passphrase)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("create hub key: %w", err)
	}
	logger.Info("created hub key", "path", keys.Path(), "identity", hash)
	return id, nil
}

func openPresence(
	ctx context.Context,
	cfg *config.Config,
	self domain.HubAddress,
	logger *log.Logger,
) (domain.PresenceDirectory, io.Closer, error) {
	switch cfg.Presence.Backend {
	case config.PresenceBolt:
		path := cfg.Presence.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Server.DataDir, path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, err
		}
		db, err := presence.OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		n, err := db.Purge(ctx, self)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("purge stale presence: %w", err)
		}
		if n > 0 {
			logger.Info("purged stale presence entries", "count", n)
		}
		return db, db, nil
	case config.PresenceMemory:
		return presence.NewMemory(), io.NopCloser(nil), nil
	default:
		return nil, nil, errors.New("unknown presence backend " + cfg.Presence.Backend)
	}
}
