package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/hub/instrument"
	"blindrelay/internal/logging"
	"blindrelay/internal/policy"
	"blindrelay/internal/presence"
	"blindrelay/internal/protocol/handshake"
	"blindrelay/internal/wire"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultDialTimeout      = 10 * time.Second
	DefaultDialBackoff      = 5 * time.Second
	DefaultOutboundQueue    = 256

	presenceTimeout = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var (
	// ErrBadHubAuthentication is returned when a peer hub rejects our hub-id.
	ErrBadHubAuthentication = errors.New("peer hub rejected authentication")

	// ErrPeerClosed is returned when a peer hub socket ends before it is
	// validated.
	ErrPeerClosed = errors.New("peer hub closed the connection")
)

// Options configures a Server.
type Options struct {
	// Identity authenticates this hub to its peers.
	Identity domain.Identity

	// Address is the public websocket URL of this hub. It is what the
	// presence directory records and what peers dial.
	Address domain.HubAddress

	// Listen and MetricsListen are used by ListenAndServe. An empty
	// MetricsListen disables the metrics listener.
	Listen        string
	MetricsListen string

	Presence domain.PresenceDirectory
	Policy   domain.SendPolicy
	Recorder domain.Recorder
	Dialer   domain.Dialer

	// TrustedHubs restricts hub-id to these identities when non-empty.
	TrustedHubs []domain.IdentityHash

	HandshakeTimeout time.Duration
	DialTimeout      time.Duration
	OutboundQueue    int

	// DialBackoff is how long a peer hub whose dial failed is skipped.
	DialBackoff time.Duration

	Metrics *instrument.Metrics
	Logger  *log.Logger
}

// Server is a hub.
type Server struct {
	opts     Options
	self     domain.IdentityHash
	log      *log.Logger
	metrics  *instrument.Metrics
	registry *Registry
	pool     *PeerPool
	resolver *Resolver
	trusted  map[domain.IdentityHash]struct{}

	// presenceMu orders registry transitions with their presence updates so
	// a quick close/reopen cannot leave the directory stale.
	presenceMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// New returns a hub. Unset collaborators get in-memory or permissive
// defaults.
func New(opts Options) (*Server, error) {
	if opts.Address == "" {
		return nil, errors.New("hub: address is required")
	}
	if opts.Identity.Public().IsZero() {
		return nil, errors.New("hub: identity is required")
	}
	if opts.Presence == nil {
		opts.Presence = presence.NewMemory()
	}
	if opts.Policy == nil {
		opts.Policy = policy.AllowAll{}
	}
	if opts.Dialer == nil {
		opts.Dialer = wire.WSDialer{}
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.OutboundQueue <= 0 {
		opts.OutboundQueue = DefaultOutboundQueue
	}
	if opts.DialBackoff <= 0 {
		opts.DialBackoff = DefaultDialBackoff
	}
	if opts.Metrics == nil {
		opts.Metrics = instrument.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts,
		self:     crypto.HashPublicKey(opts.Identity.Public()),
		log:      logging.Or(opts.Logger).WithPrefix("hub").With("hub", opts.Address),
		metrics:  opts.Metrics,
		registry: NewRegistry(),
		pool:     NewPeerPool(),
		trusted:  make(map[domain.IdentityHash]struct{}, len(opts.TrustedHubs)),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*Session]struct{}),
	}
	for _, h := range opts.TrustedHubs {
		s.trusted[h] = struct{}{}
	}
	s.resolver = NewResolver(opts.Address, opts.Presence, s.pool, s.dialPeer, opts.DialBackoff, s.log)
	return s, nil
}

// Address returns the public address of the hub.
func (s *Server) Address() domain.HubAddress { return s.opts.Address }

// Hash returns the identity hash of the hub.
func (s *Server) Hash() domain.IdentityHash { return s.self }

// Registry returns the hub's socket registry.
func (s *Server) Registry() *Registry { return s.registry }

// Pool returns the hub's peer hub pool.
func (s *Server) Pool() *PeerPool { return s.pool }

// Metrics returns the hub's metrics.
func (s *Server) Metrics() *instrument.Metrics { return s.metrics }

// Handler returns an http.Handler that serves websocket connections.
func (s *Server) Handler() http.Handler {
	return wire.Handler(func(c domain.Conn) {
		_ = s.ServeConn(s.ctx, c)
	})
}

// ServeConn challenges conn and serves it until it closes.
func (s *Server) ServeConn(ctx context.Context, conn domain.Conn) error {
	if s.ctx.Err() != nil {
		_ = conn.Close()
		return s.ctx.Err()
	}
	challenge, err := handshake.NewChallenge()
	if err != nil {
		_ = conn.Close()
		return err
	}
	sess := newSession(s, conn, s.opts.OutboundQueue)
	sess.challenge = challenge
	sess.setState(stateUnauthenticated)

	frame, err := wire.Encode(domain.FrameChallenge, domain.ChallengePayload{Challenge: challenge})
	if err != nil {
		_ = conn.Close()
		return err
	}
	sess.enqueue(frame)
	s.run(ctx, sess)
	return nil
}

// run drives sess until its socket closes, then unregisters it.
func (s *Server) run(ctx context.Context, sess *Session) {
	if !s.track(sess) {
		return
	}
	defer s.untrack(sess)
	s.metrics.Connections.Inc()
	s.metrics.OpenSockets.Inc()
	defer s.metrics.OpenSockets.Dec()

	go sess.writeLoop(ctx)

	timer := time.AfterFunc(s.opts.HandshakeTimeout, func() {
		switch sess.getState() {
		case stateUnauthenticated, stateDialing:
			sess.log.Info("handshake timed out")
			sess.Close()
		}
	})
	defer timer.Stop()

	s.readLoop(ctx, sess)
	sess.Close()
	s.unregister(sess)
}

func (s *Server) readLoop(ctx context.Context, sess *Session) {
	for {
		select {
		case <-sess.done:
			return
		default:
		}
		raw, err := sess.conn.ReadFrame(ctx)
		if err != nil {
			sess.log.Debug("socket closed", "err", err)
			return
		}
		f, err := wire.Decode(raw)
		if err != nil {
			s.metrics.Drop(instrument.DropMalformed)
			sess.log.Debug("dropping frame", "err", err)
			continue
		}
		s.handle(ctx, sess, f)
	}
}

func (s *Server) track(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		sess.Close()
		return false
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	s.wg.Done()
}

// Close closes every socket and waits for their handlers to finish.
func (s *Server) Close() error {
	s.cancel()
	s.mu.Lock()
	for sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Serve accepts websocket connections on ln, and serves metrics on
// MetricsListen when set, until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		s.log.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("hub listener: %w", err)
		}
		return nil
	})

	var msrv *http.Server
	if s.opts.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		msrv = &http.Server{Addr: s.opts.MetricsListen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			s.log.Info("serving metrics", "addr", s.opts.MetricsListen)
			if err := msrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.Close()
		err := srv.Shutdown(sctx)
		if msrv != nil {
			err = errors.Join(err, msrv.Shutdown(sctx))
		}
		return err
	})

	return g.Wait()
}

// ListenAndServe listens on Options.Listen and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
