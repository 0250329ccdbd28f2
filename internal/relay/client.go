package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/logging"
	"blindrelay/internal/protocol/envelope"
	"blindrelay/internal/protocol/handshake"
	"blindrelay/internal/wire"
)

// DefaultHandshakeTimeout bounds Start when Options.HandshakeTimeout is zero.
const DefaultHandshakeTimeout = 10 * time.Second

var (
	// ErrBadAuthentication is returned when the hub answers "bad-auth".
	ErrBadAuthentication = errors.New("hub rejected authentication")

	// ErrNotValidated is returned by Send before the handshake completes.
	ErrNotValidated = errors.New("connection not validated")

	// ErrHandshakeTimeout is returned when the hub does not validate in time.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("connection closed")
)

// State is the handshake state of a Client.
type State int32

const (
	Connecting State = iota
	ChallengeReceived
	Validated
	Rejected
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case ChallengeReceived:
		return "challenge-received"
	case Validated:
		return "validated"
	case Rejected:
		return "rejected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Client.
type Options struct {
	Identity domain.Identity

	// Dialer is used by Dial; defaults to websocket.
	Dialer domain.Dialer

	// HandshakeTimeout defaults to DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// OnMessage receives every verified inbound message, in order, on the
	// reader goroutine.
	OnMessage func(domain.VerifiedMessage)

	// OnClose is called once when the connection ends. err is nil after Close.
	OnClose func(err error)

	Logger *log.Logger
}

// Client is an authenticated connection to a hub.
type Client struct {
	conn domain.Conn
	id   domain.Identity
	self domain.IdentityHash
	opts Options
	log  *log.Logger

	state atomic.Int32

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

var _ domain.MessageSender = (*Client)(nil)

// Dial connects to the hub at url and authenticates.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	d := opts.Dialer
	if d == nil {
		d = wire.WSDialer{}
	}
	conn, err := d.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return Start(ctx, conn, opts)
}

// Start authenticates over conn. On failure conn is closed.
func Start(ctx context.Context, conn domain.Conn, opts Options) (*Client, error) {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	self := crypto.HashPublicKey(opts.Identity.Public())
	c := &Client{
		conn: conn,
		id:   opts.Identity,
		self: self,
		opts: opts,
		log:  logging.Or(opts.Logger).WithPrefix("relay").With("identity", self.Short()),
		done: make(chan struct{}),
	}
	c.state.Store(int32(Connecting))

	if err := c.handshake(ctx); err != nil {
		c.shutdown(err)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go c.readLoop(runCtx)
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	hsCtx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	for {
		raw, err := c.conn.ReadFrame(hsCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return ErrHandshakeTimeout
			}
			return fmt.Errorf("handshake: %w", err)
		}
		f, err := wire.Decode(raw)
		if err != nil {
			c.log.Warn("ignoring frame during handshake", "err", err)
			continue
		}

		switch f.Type {
		case domain.FrameChallenge:
			p, err := wire.Payload[domain.ChallengePayload](f)
			if err != nil {
				return err
			}
			c.state.Store(int32(ChallengeReceived))
			out, err := wire.Encode(domain.FrameIdentify, handshake.Certify(c.id, p.Challenge))
			if err != nil {
				return err
			}
			if err := c.conn.WriteFrame(hsCtx, out); err != nil {
				return fmt.Errorf("send id: %w", err)
			}
		case domain.FrameValidated:
			if c.State() != ChallengeReceived {
				c.log.Warn("validated before challenge")
				continue
			}
			c.state.Store(int32(Validated))
			c.log.Debug("validated")
			return nil
		case domain.FrameBadAuth:
			c.state.Store(int32(Rejected))
			return ErrBadAuthentication
		default:
			c.log.Debug("ignoring frame during handshake", "type", f.Type)
		}
	}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		raw, err := c.conn.ReadFrame(ctx)
		if err != nil {
			c.shutdown(err)
			return
		}
		f, err := wire.Decode(raw)
		if err != nil {
			c.log.Warn("dropping frame", "err", err)
			continue
		}
		switch f.Type {
		case domain.FrameMessage:
			c.handleMessage(f)
		case domain.FrameBadAuth:
			c.state.Store(int32(Rejected))
			c.shutdown(ErrBadAuthentication)
			return
		default:
			c.log.Debug("ignoring frame", "type", f.Type)
		}
	}
}

func (c *Client) handleMessage(f domain.Frame) {
	p, err := wire.Payload[domain.MessagePayload](f)
	if err != nil {
		c.log.Warn("dropping message", "err", err)
		return
	}
	if p.To != c.self {
		c.log.Warn("dropping message for another identity", "to", p.To.Short())
		return
	}
	msg, err := envelope.VerifyAndDecrypt(c.id, p.Payload)
	if err != nil {
		c.log.Warn("dropping unverifiable message", "err", err)
		return
	}
	if from := crypto.HashPublicKey(msg.From); p.From != "" && p.From != from {
		c.log.Warn("dropping message with mismatched sender", "from", p.From.Short(), "signer", from.Short())
		return
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(msg)
	}
}

// Send encrypts payload for to and forwards it through the hub.
func (c *Client) Send(ctx context.Context, to domain.PublicKey, payload any) error {
	switch c.State() {
	case Validated:
	case Closed, Rejected:
		return ErrClosed
	default:
		return ErrNotValidated
	}
	env, err := envelope.EncryptAndSign(to, c.id, payload)
	if err != nil {
		return err
	}
	frame, err := wire.Encode(domain.FrameMessage, domain.MessagePayload{
		To:      crypto.HashPublicKey(to),
		Payload: env,
	})
	if err != nil {
		return err
	}
	if err := c.conn.WriteFrame(ctx, frame); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		if c.State() != Rejected {
			c.state.Store(int32(Closed))
		}
		if c.cancel != nil {
			c.cancel()
		}
		_ = c.conn.Close()
		c.err = err
		close(c.done)
		if err != nil {
			c.log.Debug("connection closed", "err", err)
		}
		if c.opts.OnClose != nil {
			c.opts.OnClose(err)
		}
	})
}

// State returns the current handshake state.
func (c *Client) State() State { return State(c.state.Load()) }

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the reason the connection ended, after Done is closed.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// PublicKey returns the public key the client authenticated with.
func (c *Client) PublicKey() domain.PublicKey { return c.id.Public() }

// Hash returns the identity hash the client authenticated as.
func (c *Client) Hash() domain.IdentityHash { return c.self }
