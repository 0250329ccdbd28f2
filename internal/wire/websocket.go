package wire

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"blindrelay/internal/domain"
)

// WSConn adapts a websocket connection to domain.Conn.
type WSConn struct {
	ws *websocket.Conn
	wm sync.Mutex
}

var _ domain.Conn = (*WSConn)(nil)

// NewWSConn wraps ws.
func NewWSConn(ws *websocket.Conn) *WSConn {
	ws.PayloadType = websocket.TextFrame
	return &WSConn{ws: ws}
}

// ReadFrame blocks for the next text message or until ctx ends.
func (c *WSConn) ReadFrame(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	var msg string
	if err := websocket.Message.Receive(c.ws, &msg); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return []byte(msg), nil
}

// WriteFrame sends frame as one text message. Concurrent writers are
// serialised.
func (c *WSConn) WriteFrame(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.wm.Lock()
	defer c.wm.Unlock()

	deadline, _ := ctx.Deadline()
	_ = c.ws.SetWriteDeadline(deadline)
	return websocket.Message.Send(c.ws, string(frame))
}

// Close closes the underlying socket.
func (c *WSConn) Close() error { return c.ws.Close() }

// RemoteAddr returns the peer address.
func (c *WSConn) RemoteAddr() string {
	if r := c.ws.Request(); r != nil {
		return r.RemoteAddr
	}
	return c.ws.RemoteAddr().String()
}

// WSDialer dials hubs over websocket.
type WSDialer struct {
	// Origin is sent in the handshake; defaults to http://localhost/.
	Origin string
}

var _ domain.Dialer = WSDialer{}

// Dial opens a websocket to url.
func (d WSDialer) Dial(ctx context.Context, url string) (domain.Conn, error) {
	origin := d.Origin
	if origin == "" {
		origin = "http://localhost/"
	}
	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, err
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	return NewWSConn(ws), nil
}

// Handler returns an http.Handler that upgrades every request to a websocket
// and hands it to serve. The socket is closed when serve returns.
func Handler(serve func(domain.Conn)) http.Handler {
	return websocket.Server{
		Handler: func(ws *websocket.Conn) {
			c := NewWSConn(ws)
			defer c.Close()
			serve(c)
		},
	}
}
