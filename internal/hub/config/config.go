// Package config implements the hub's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"blindrelay/internal/domain"
)

const (
	defaultListen           = ":8080"
	defaultLogLevel         = "info"
	defaultHandshakeTimeout = 10
	defaultDialTimeout      = 10
	defaultDialBackoff      = 5
	defaultOutboundQueue    = 256
	defaultPresenceFile     = "presence.db"

	// PresenceMemory keeps presence in process memory.
	PresenceMemory = "memory"
	// PresenceBolt keeps presence in a bbolt file.
	PresenceBolt = "bolt"
)

// Server is the listener and identity configuration.
type Server struct {
	// Listen is the websocket listen address.
	Listen string

	// PublicURL is the websocket URL peers and the presence directory use
	// for this hub, e.g. ws://hub-a.example:8080.
	PublicURL string

	// DataDir holds the hub key and the presence database.
	DataDir string

	// HandshakeTimeout is the number of seconds a socket may take to
	// authenticate.
	HandshakeTimeout int

	// OutboundQueue is the per-socket number of queued frames.
	OutboundQueue int
}

func (s *Server) validate() error {
	if s.Listen == "" {
		s.Listen = defaultListen
	}
	if s.PublicURL == "" {
		return errors.New("config: Server: PublicURL is not set")
	}
	u, err := url.Parse(s.PublicURL)
	if err != nil {
		return fmt.Errorf("config: Server: PublicURL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("config: Server: PublicURL scheme %q is not ws or wss", u.Scheme)
	}
	if s.DataDir == "" {
		return errors.New("config: Server: DataDir is not set")
	}
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = defaultHandshakeTimeout
	}
	if s.OutboundQueue <= 0 {
		s.OutboundQueue = defaultOutboundQueue
	}
	return nil
}

// Logging is the logging configuration.
type Logging struct {
	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level is one of debug, info, warn, error.
	Level string
}

func (l *Logging) validate() error {
	lvl := strings.ToLower(l.Level)
	switch lvl {
	case "debug", "info", "warn", "error":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", l.Level)
	}
	l.Level = lvl
	return nil
}

// Metrics is the prometheus listener configuration.
type Metrics struct {
	// Listen is the address /metrics is served on. Empty disables it.
	Listen string
}

// Presence selects the presence directory backend.
type Presence struct {
	// Backend is "memory" or "bolt".
	Backend string

	// Path is the bbolt file, relative to DataDir unless absolute.
	Path string
}

func (p *Presence) validate() error {
	switch p.Backend {
	case "":
		p.Backend = PresenceMemory
	case PresenceMemory:
	case PresenceBolt:
		if p.Path == "" {
			p.Path = defaultPresenceFile
		}
	default:
		return fmt.Errorf("config: Presence: Backend '%v' is invalid", p.Backend)
	}
	return nil
}

// Federation configures hub-to-hub links.
type Federation struct {
	// TrustedHubs lists identity hashes allowed to authenticate as peer
	// hubs. Empty allows any hub that proves its key.
	TrustedHubs []string

	// DialTimeout is the number of seconds a peer dial may take.
	DialTimeout int

	// DialBackoff is the number of seconds a peer whose dial failed is
	// skipped.
	DialBackoff int
}

// Limits configures per-sender rate limiting. Zero disables it.
type Limits struct {
	SendRatePerSecond float64
	Burst             int
}

func (l *Limits) validate() error {
	if l.SendRatePerSecond < 0 || l.Burst < 0 {
		return errors.New("config: Limits: values must not be negative")
	}
	if l.SendRatePerSecond > 0 && l.Burst == 0 {
		l.Burst = 1
	}
	return nil
}

// Config is the top level hub configuration.
type Config struct {
	Server     *Server
	Logging    *Logging
	Metrics    *Metrics
	Presence   *Presence
	Federation *Federation
	Limits     *Limits
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections.
func (c *Config) FixupAndValidate() error {
	if c.Server == nil {
		return errors.New("config: No Server block was present")
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}
	if c.Presence == nil {
		c.Presence = &Presence{}
	}
	if c.Federation == nil {
		c.Federation = &Federation{}
	}
	if c.Federation.DialTimeout <= 0 {
		c.Federation.DialTimeout = defaultDialTimeout
	}
	if c.Federation.DialBackoff <= 0 {
		c.Federation.DialBackoff = defaultDialBackoff
	}
	if c.Limits == nil {
		c.Limits = &Limits{}
	}

	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Presence.validate(); err != nil {
		return err
	}
	return c.Limits.validate()
}

// HandshakeTimeout returns Server.HandshakeTimeout as a duration.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Server.HandshakeTimeout) * time.Second
}

// DialTimeout returns Federation.DialTimeout as a duration.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Federation.DialTimeout) * time.Second
}

// DialBackoff returns Federation.DialBackoff as a duration.
func (c *Config) DialBackoff() time.Duration {
	return time.Duration(c.Federation.DialBackoff) * time.Second
}

// TrustedHubs returns the federation allow-list as identity hashes.
func (c *Config) TrustedHubs() []domain.IdentityHash {
	out := make([]domain.IdentityHash, 0, len(c.Federation.TrustedHubs))
	for _, h := range c.Federation.TrustedHubs {
		out = append(out, domain.IdentityHash(h))
	}
	return out
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
