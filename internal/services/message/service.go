package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/logging"
	"blindrelay/internal/protocol/envelope"
	"blindrelay/internal/relay"
)

const (
	// IDLength is the length of a correlation id.
	IDLength = 10

	// DefaultInboundQueue is the number of received messages waiting for
	// the Handler before new ones are dropped unacknowledged.
	DefaultInboundQueue = 256
)

const (
	packetMessage = "message"
	packetAck     = "ack"
)

var (
	// ErrUnknownAck is logged when an ack has no pending send.
	ErrUnknownAck = errors.New("ack for unknown message")

	// ErrAckTimeout is returned by Send when no ack arrives within
	// AckTimeout after the last attempt.
	ErrAckTimeout = errors.New("timed out waiting for ack")

	// ErrConnectionClosed is returned by pending sends when the connection
	// ends before their ack arrives.
	ErrConnectionClosed = errors.New("connection closed before ack")

	// ErrNotBound is returned by Send before Bind.
	ErrNotBound = errors.New("message service has no connection")
)

// Handler processes one inbound payload. Returning nil acknowledges it.
type Handler func(ctx context.Context, m domain.IncomingMessage) error

// Options configures a Service.
type Options struct {
	// Identity, Dialer and HandshakeTimeout are passed to the relay
	// connection by Connect.
	Identity         domain.Identity
	Dialer           domain.Dialer
	HandshakeTimeout time.Duration

	Handler Handler

	// AckTimeout bounds each attempt; zero waits until the context ends.
	AckTimeout time.Duration

	// Retries is the number of extra transmissions after a timeout.
	Retries int

	// InboundQueue defaults to DefaultInboundQueue.
	InboundQueue int

	// OnClose is called once when the underlying connection ends.
	OnClose func(err error)

	Logger *log.Logger
}

type packet struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type dataPacket struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

type ackPacket struct {
	ID string `json:"id"`
}

type inbound struct {
	from domain.PublicKey
	data dataPacket
}

// Service is the acknowledgement layer over a domain.MessageSender.
type Service struct {
	opts Options
	log  *log.Logger

	mu      sync.Mutex
	pending map[string]chan struct{}

	inbox chan inbound

	conn      domain.MessageSender
	bound     chan struct{}
	bindOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

var _ domain.MessageSender = (*Service)(nil)

// New returns an unbound Service. Inbound messages may be fed to
// HandleMessage before Bind; their acks wait for the connection.
func New(opts Options) *Service {
	if opts.InboundQueue <= 0 {
		opts.InboundQueue = DefaultInboundQueue
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		opts:    opts,
		log:     logging.Or(opts.Logger).WithPrefix("ack"),
		pending: make(map[string]chan struct{}),
		inbox:   make(chan inbound, opts.InboundQueue),
		bound:   make(chan struct{}),
		closed:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.work()
	return s
}

// Connect dials url, authenticates and returns a Service bound to the
// resulting connection.
func Connect(ctx context.Context, url string, opts Options) (*Service, error) {
	s := New(opts)
	c, err := relay.Dial(ctx, url, s.RelayOptions())
	if err != nil {
		s.HandleClose(err)
		return nil, err
	}
	s.Bind(c)
	return s, nil
}

// RelayOptions returns relay options that feed this Service.
func (s *Service) RelayOptions() relay.Options {
	return relay.Options{
		Identity:         s.opts.Identity,
		Dialer:           s.opts.Dialer,
		HandshakeTimeout: s.opts.HandshakeTimeout,
		OnMessage:        s.HandleMessage,
		OnClose:          s.HandleClose,
		Logger:           s.opts.Logger,
	}
}

// Bind attaches the connection used for sends and acks. Only the first call
// has effect.
func (s *Service) Bind(conn domain.MessageSender) {
	s.bindOnce.Do(func() {
		s.conn = conn
		close(s.bound)
	})
}

// Send transmits payload to to and waits for its ack.
func (s *Service) Send(ctx context.Context, to domain.PublicKey, payload any) error {
	select {
	case <-s.bound:
	default:
		return ErrNotBound
	}
	select {
	case <-s.closed:
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	id, acked, err := s.register()
	if err != nil {
		return err
	}
	defer s.forget(id)

	pkt, err := encodePacket(packetMessage, dataPacket{ID: id, Payload: data})
	if err != nil {
		return err
	}

	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			s.log.Debug("retransmitting", "id", id, "attempt", attempt)
		}
		if err := s.conn.Send(ctx, to, pkt); err != nil {
			return err
		}
		if err := s.wait(ctx, acked); !errors.Is(err, ErrAckTimeout) {
			return err
		}
	}
	return ErrAckTimeout
}

// SendAsync runs Send in the background. The channel receives exactly one
// value.
func (s *Service) SendAsync(ctx context.Context, to domain.PublicKey, payload any) <-chan error {
	out := make(chan error, 1)
	go func() { out <- s.Send(ctx, to, payload) }()
	return out
}

func (s *Service) wait(ctx context.Context, acked <-chan struct{}) error {
	var timeout <-chan time.Time
	if s.opts.AckTimeout > 0 {
		t := time.NewTimer(s.opts.AckTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-acked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return ErrConnectionClosed
	case <-timeout:
		return ErrAckTimeout
	}
}

func (s *Service) register() (string, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id, err := crypto.RandomString(IDLength)
		if err != nil {
			return "", nil, err
		}
		if _, taken := s.pending[id]; taken {
			continue
		}
		ch := make(chan struct{})
		s.pending[id] = ch
		return id, ch, nil
	}
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Pending returns the number of sends waiting for an ack.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// HandleMessage processes one verified inbound message. It never blocks on
// the consumer: messages are handed to the Handler in arrival order by a
// single worker.
func (s *Service) HandleMessage(m domain.VerifiedMessage) {
	pkt, err := envelope.Decode[packet](m)
	if err != nil {
		s.log.Warn("dropping undecodable packet", "err", err)
		return
	}
	switch pkt.Type {
	case packetAck:
		var a ackPacket
		if err := json.Unmarshal(pkt.Payload, &a); err != nil {
			s.log.Warn("dropping malformed ack", "err", err)
			return
		}
		s.resolve(a.ID)
	case packetMessage:
		var d dataPacket
		if err := json.Unmarshal(pkt.Payload, &d); err != nil || d.ID == "" {
			s.log.Warn("dropping malformed message", "err", err)
			return
		}
		select {
		case s.inbox <- inbound{from: m.From, data: d}:
		default:
			// Left unacknowledged, so a sender with retries sends it again.
			s.log.Warn("inbound queue full, dropping message", "id", d.ID)
		}
	default:
		s.log.Warn("dropping packet of unknown type", "type", pkt.Type)
	}
}

func (s *Service) resolve(id string) {
	s.mu.Lock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		s.log.Warn(ErrUnknownAck.Error(), "id", id)
		return
	}
	close(ch)
}

func (s *Service) work() {
	for {
		select {
		case in := <-s.inbox:
			s.process(in.from, in.data)
		case <-s.closed:
			return
		}
	}
}

func (s *Service) process(from domain.PublicKey, d dataPacket) {
	if h := s.opts.Handler; h != nil {
		if err := h(s.ctx, domain.IncomingMessage{From: from, Payload: d.Payload}); err != nil {
			s.log.Warn("handler failed, not acknowledging", "id", d.ID, "err", err)
			return
		}
	}

	select {
	case <-s.bound:
	case <-s.closed:
		return
	}
	pkt, err := encodePacket(packetAck, ackPacket{ID: d.ID})
	if err != nil {
		s.log.Error("encode ack", "err", err)
		return
	}
	if err := s.conn.Send(s.ctx, from, pkt); err != nil {
		s.log.Warn("sending ack", "id", d.ID, "err", err)
	}
}

// HandleClose records that the underlying connection ended. Pending sends
// fail with ErrConnectionClosed.
func (s *Service) HandleClose(err error) {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.cancel()
		if s.opts.OnClose != nil {
			s.opts.OnClose(err)
		}
	})
}

// Close closes the underlying connection and fails pending sends.
func (s *Service) Close() error {
	s.HandleClose(nil)
	select {
	case <-s.bound:
		return s.conn.Close()
	default:
		return nil
	}
}

// Done is closed once the connection has ended.
func (s *Service) Done() <-chan struct{} { return s.closed }

func encodePacket(typ string, payload any) (packet, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return packet{}, err
	}
	return packet{Type: typ, Payload: raw}, nil
}
