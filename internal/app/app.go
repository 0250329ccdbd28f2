package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"blindrelay/internal/domain"
	"blindrelay/internal/logging"
	"blindrelay/internal/services/message"
)

var (
	// ErrNoHub is returned by Connect when no hub URL is configured.
	ErrNoHub = errors.New("no hub configured, use --hub")

	// ErrUnknownContact is returned when a recipient is neither a saved
	// alias nor a public key.
	ErrUnknownContact = errors.New("unknown contact")
)

// App is the client application: identity, contacts and hub connections.
type App struct {
	*Wire
	cfg Config
	log *log.Logger
}

// New builds an App from cfg.
func New(cfg Config) *App {
	return &App{
		Wire: NewWire(cfg),
		cfg:  cfg,
		log:  logging.Or(cfg.Logger),
	}
}

// Config returns the configuration the App was built with.
func (a *App) Config() Config { return a.cfg }

// AddContact saves key under alias. The key must be a valid base58
// public key.
func (a *App) AddContact(alias domain.Alias, key string) (domain.Contact, error) {
	pub, err := domain.ParsePublicKey(key)
	if err != nil {
		return domain.Contact{}, err
	}
	c := domain.Contact{Alias: alias, PublicKey: pub}
	if err := a.Contacts.SaveContact(c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

// ResolveRecipient returns the public key saved under nameOrKey, or
// nameOrKey parsed as a public key.
func (a *App) ResolveRecipient(nameOrKey string) (domain.PublicKey, error) {
	c, ok, err := a.Contacts.LoadContact(domain.Alias(nameOrKey))
	if err != nil {
		return domain.PublicKey{}, err
	}
	if ok {
		return c.PublicKey, nil
	}
	pub, err := domain.ParsePublicKey(nameOrKey)
	if err != nil {
		return domain.PublicKey{}, fmt.Errorf("%w: %q", ErrUnknownContact, nameOrKey)
	}
	return pub, nil
}

// Connect unlocks the identity and opens an acknowledged connection to the
// configured hub. handler may be nil for send-only use.
func (a *App) Connect(
	ctx context.Context,
	passphrase string,
	handler message.Handler,
) (*message.Service, error) {
	if a.cfg.HubURL == "" {
		return nil, ErrNoHub
	}
	id, err := a.IDs.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	svc, err := message.Connect(ctx, a.cfg.HubURL, message.Options{
		Identity:   id,
		Dialer:     a.cfg.Dialer,
		Handler:    handler,
		AckTimeout: a.cfg.AckTimeout,
		Retries:    a.cfg.Retries,
		Logger:     a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", a.cfg.HubURL, err)
	}
	a.log.Debug("connected", "hub", a.cfg.HubURL)
	return svc, nil
}
