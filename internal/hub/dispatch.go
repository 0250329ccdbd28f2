package hub

import (
	"context"
	"fmt"

	"blindrelay/internal/crypto"
	"blindrelay/internal/domain"
	"blindrelay/internal/hub/instrument"
	"blindrelay/internal/protocol/handshake"
	"blindrelay/internal/wire"
)

func (s *Server) handle(ctx context.Context, sess *Session, f domain.Frame) {
	switch sess.getState() {
	case stateUnauthenticated:
		switch f.Type {
		case domain.FrameIdentify:
			s.authenticateClient(sess, f)
		case domain.FrameHubIdentify:
			s.authenticatePeer(sess, f)
		default:
			s.metrics.Drop(instrument.DropUnauthenticated)
			sess.log.Debug("ignoring frame before authentication", "type", f.Type)
		}

	case stateDialing:
		s.handleDialing(sess, f)

	case stateAuthenticated:
		switch f.Type {
		case domain.FrameMessage:
			s.forward(ctx, sess, f)
		case domain.FrameIdentify, domain.FrameHubIdentify:
			sess.log.Debug("ignoring repeated identification")
		case domain.FrameRelay:
			s.metrics.Drop(instrument.DropNotPeer)
			sess.log.Warn("client sent a relay frame")
		default:
			sess.log.Debug("ignoring frame", "type", f.Type)
		}

	case statePeerHub:
		switch f.Type {
		case domain.FrameRelay:
			s.deliverRelay(sess, f)
		case domain.FrameMessage:
			s.metrics.Drop(instrument.DropNotPeer)
			sess.log.Warn("peer hub sent a message frame")
		default:
			sess.log.Debug("ignoring frame", "type", f.Type)
		}
	}
}

func (s *Server) authenticateClient(sess *Session, f domain.Frame) {
	p, err := wire.Payload[domain.IdentifyPayload](f)
	if err != nil || !handshake.Validate(sess.challenge, p) {
		s.metrics.AuthResult("client", false)
		sess.log.Info("client authentication failed", "err", err)
		s.rejectWith(sess, domain.FrameBadAuth)
		return
	}
	id := crypto.HashPublicKey(p.PublicKey)
	sess.identity = id
	sess.setState(stateAuthenticated)
	s.metrics.AuthResult("client", true)

	if frame, err := wire.Encode(domain.FrameValidated, nil); err == nil {
		sess.enqueue(frame)
	}
	s.register(sess)
	sess.log.Info("client authenticated", "identity", id.Short())
}

func (s *Server) authenticatePeer(sess *Session, f domain.Frame) {
	p, err := wire.Payload[domain.HubIdentifyPayload](f)
	if err != nil || !handshake.ValidateHub(sess.challenge, p) || !s.isTrusted(p.PublicKey) {
		s.metrics.AuthResult("hub", false)
		sess.log.Info("peer hub authentication failed", "err", err)
		s.rejectWith(sess, domain.FrameBadHubAuth)
		return
	}
	sess.setState(statePeerHub)
	s.metrics.AuthResult("hub", true)

	if frame, err := wire.Encode(domain.FrameHubValidated, nil); err == nil {
		sess.enqueue(frame)
	}
	// The claimed address is unverified, so an inbound peer socket only
	// carries relays towards us. Relays to a peer use a socket we dialed.
	sess.log.Info("peer hub authenticated",
		"claimed", p.Address,
		"peer", crypto.HashPublicKey(p.PublicKey).Short(),
	)
}

// handleDialing runs our side of the hub handshake on a socket we dialed.
func (s *Server) handleDialing(sess *Session, f domain.Frame) {
	switch f.Type {
	case domain.FrameChallenge:
		p, err := wire.Payload[domain.ChallengePayload](f)
		if err != nil {
			sess.log.Warn("bad challenge from peer hub", "err", err)
			sess.Close()
			return
		}
		frame, err := wire.Encode(domain.FrameHubIdentify, handshake.CertifyHub(s.opts.Identity, s.opts.Address, p.Challenge))
		if err != nil {
			sess.Close()
			return
		}
		sess.enqueue(frame)
	case domain.FrameHubValidated:
		sess.setState(statePeerHub)
		close(sess.ready)
	case domain.FrameBadHubAuth:
		sess.setState(stateRejected)
		sess.Close()
	default:
		sess.log.Debug("ignoring frame while dialing", "type", f.Type)
	}
}

func (s *Server) rejectWith(sess *Session, t domain.FrameType) {
	frame, err := wire.Encode(t, nil)
	if err != nil {
		frame = nil
	}
	sess.reject(frame)
}

func (s *Server) isTrusted(pub domain.PublicKey) bool {
	if len(s.trusted) == 0 {
		return true
	}
	_, ok := s.trusted[crypto.HashPublicKey(pub)]
	return ok
}

// forward routes a client message to local sockets and to peer hubs. The
// sender is always the socket's authenticated identity.
func (s *Server) forward(ctx context.Context, sess *Session, f domain.Frame) {
	p, err := wire.Payload[domain.MessagePayload](f)
	if err != nil || p.To == "" {
		s.metrics.Drop(instrument.DropMalformed)
		sess.log.Debug("dropping malformed message", "err", err)
		return
	}
	from := sess.identity
	if !s.opts.Policy.CanSend(from, p.To) {
		s.metrics.Drop(instrument.DropPolicy)
		sess.log.Info("message refused by policy", "to", p.To.Short())
		return
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.Record(from, p.To)
	}

	s.deliverLocal(p.To, from, p.Payload)

	relay, err := wire.Encode(domain.FrameRelay, domain.RelayPayload{To: p.To, From: from, Payload: p.Payload})
	if err != nil {
		sess.log.Error("encode relay", "err", err)
		return
	}
	for _, peer := range s.resolver.ResolvePeerHubSockets(ctx, p.To) {
		if peer.enqueue(relay) {
			s.metrics.Relayed.Inc()
		}
	}
}

// deliverRelay hands a relayed envelope to local sockets only.
func (s *Server) deliverRelay(sess *Session, f domain.Frame) {
	p, err := wire.Payload[domain.RelayPayload](f)
	if err != nil || p.To == "" || p.From == "" {
		s.metrics.Drop(instrument.DropMalformed)
		sess.log.Debug("dropping malformed relay", "err", err)
		return
	}
	s.deliverLocal(p.To, p.From, p.Payload)
}

func (s *Server) deliverLocal(to, from domain.IdentityHash, env domain.SecureEnvelope) {
	targets := s.registry.Lookup(to)
	if len(targets) == 0 {
		return
	}
	frame, err := wire.Encode(domain.FrameMessage, domain.MessagePayload{To: to, From: from, Payload: env})
	if err != nil {
		s.log.Error("encode message", "err", err)
		return
	}
	for _, t := range targets {
		if t.enqueue(frame) {
			s.metrics.Forwarded.Inc()
		}
	}
}

func (s *Server) register(sess *Session) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	if first := s.registry.Add(sess.identity, sess); first {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		if err := s.opts.Presence.AddToSet(ctx, sess.identity, s.opts.Address); err != nil {
			sess.log.Warn("presence add failed", "err", err)
		}
	}
	s.metrics.Identities.Set(float64(s.registry.Len()))
}

func (s *Server) unregister(sess *Session) {
	if sess.identity != "" {
		s.presenceMu.Lock()
		if last := s.registry.Remove(sess.identity, sess); last {
			ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
			if err := s.opts.Presence.RemoveFromSet(ctx, sess.identity, s.opts.Address); err != nil {
				sess.log.Warn("presence remove failed", "err", err)
			}
			cancel()
		}
		s.metrics.Identities.Set(float64(s.registry.Len()))
		s.presenceMu.Unlock()
	}
	if sess.peer != "" {
		s.pool.Remove(sess.peer, sess)
		s.metrics.PeerHubs.Set(float64(s.pool.Len()))
	}
}

// dialPeer opens and authenticates a federation socket to addr.
func (s *Server) dialPeer(ctx context.Context, addr domain.HubAddress) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	defer cancel()

	conn, err := s.opts.Dialer.Dial(ctx, string(addr))
	if err != nil {
		s.metrics.PeerDialFail.Inc()
		return nil, fmt.Errorf("dial peer hub %s: %w", addr, err)
	}
	sess := newSession(s, conn, s.opts.OutboundQueue)
	sess.peer = addr
	sess.log = sess.log.With("peer", addr)
	sess.setState(stateDialing)

	go s.run(s.ctx, sess)

	select {
	case <-sess.ready:
		s.metrics.PeerHubs.Set(float64(s.pool.Len()))
		sess.log.Info("connected to peer hub")
		return sess, nil
	case <-sess.done:
		s.metrics.PeerDialFail.Inc()
		if sess.getState() == stateRejected {
			return nil, fmt.Errorf("%s: %w", addr, ErrBadHubAuthentication)
		}
		return nil, fmt.Errorf("%s: %w", addr, ErrPeerClosed)
	case <-ctx.Done():
		s.metrics.PeerDialFail.Inc()
		sess.Close()
		return nil, ctx.Err()
	}
}
