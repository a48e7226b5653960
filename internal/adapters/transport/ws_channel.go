// Package transport implements the realtime channel to the agent server over
// a WebSocket. Frames are delivered one at a time, in order, to a handler.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
)

// Channel tuning
const (
	SendBuffer     = 64
	WriteTimeout   = 10 * time.Second
	PongTimeout    = 60 * time.Second
	PingInterval   = PongTimeout * 9 / 10
	MinBackoff     = 500 * time.Millisecond
	MaxBackoff     = 30 * time.Second
	handshakeLimit = 15 * time.Second
)

// Options configures a Channel
type Options struct {
	// Dialer defaults to websocket.DefaultDialer
	Dialer *websocket.Dialer
	// OnState is told when the channel connects or drops
	OnState func(connected bool)
	// Reconnect keeps Run dialing again after the connection drops
	Reconnect bool
	Token     string
	URL       string
}

// Channel is a WebSocket connection to the agent server. It implements ports.Sender.
type Channel struct {
	id   string
	opts Options

	mu        sync.Mutex
	connected bool
	sendCh    chan []byte
}

// NewChannel creates a channel that is not connected yet
func NewChannel(opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Channel{
		id:   uuid.New().String(),
		opts: opts,
	}
}

// ID identifies the channel in logs
func (c *Channel) ID() string { return c.id }

// Connected reports whether a connection is up
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send queues v as a JSON text frame. It fails with domain.ErrNotConnected
// when no connection is up, and never blocks.
func (c *Channel) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.ErrNotConnected
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full: %w", domain.ErrNotConnected)
	}
}

// Endpoint builds the channel URL for a server base URL and token
func Endpoint(serverURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Run connects and delivers every inbound frame to handle until ctx ends.
// With Reconnect set, a dropped connection is dialed again with backoff;
// otherwise Run returns the error that ended the connection.
func (c *Channel) Run(ctx context.Context, handle ports.FrameHandler) error {
	backoff := MinBackoff
	for {
		start := time.Now()
		err := c.runOnce(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if !c.opts.Reconnect {
			return err
		}
		if time.Since(start) > MaxBackoff {
			backoff = MinBackoff
		}
		logging.Logger.Warn("Channel dropped, reconnecting", "channel_id", c.id, "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MaxBackoff)
	}
}

func (c *Channel) runOnce(ctx context.Context, handle ports.FrameHandler) error {
	endpoint, err := Endpoint(c.opts.URL, c.opts.Token)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, handshakeLimit)
	conn, resp, err := c.opts.Dialer.DialContext(dialCtx, endpoint, http.Header{})
	cancel()
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect: %w", err)
	}
	logging.Logger.Info("Channel connected", "channel_id", c.id)

	sendCh := make(chan []byte, SendBuffer)
	c.setConnected(true, sendCh)
	defer c.setConnected(false, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readPump(conn, handle) })
	g.Go(func() error { return c.writePump(gctx, conn, sendCh) })

	err = g.Wait()
	conn.Close()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logging.Logger.Info("Channel closed by server", "channel_id", c.id)
	}
	return err
}

func (c *Channel) setConnected(connected bool, sendCh chan []byte) {
	c.mu.Lock()
	c.connected = connected
	c.sendCh = sendCh
	c.mu.Unlock()
	if c.opts.OnState != nil {
		c.opts.OnState(connected)
	}
}

// readPump hands frames to handle in arrival order
func (c *Channel) readPump(conn *websocket.Conn, handle ports.FrameHandler) error {
	conn.SetReadDeadline(time.Now().Add(PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongTimeout))
	})
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(PongTimeout))
		if kind != websocket.TextMessage {
			logging.Logger.Debug("Ignoring non-text frame", "channel_id", c.id, "kind", kind)
			continue
		}
		handle(data)
	}
}

// frameWriter is the write half of a websocket.Conn
type frameWriter interface {
	Close() error
	SetWriteDeadline(t time.Time) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// writePump drains the send queue, pings, and sends a close frame on shutdown.
// A failed write closes conn so the read side stops too.
func (c *Channel) writePump(ctx context.Context, conn frameWriter, sendCh <-chan []byte) error {
	ping := time.NewTicker(PingInterval)
	defer ping.Stop()

	for {
		select {
		case data := <-sendCh:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Logger.Error("Channel write failed", "channel_id", c.id, "error", err)
				conn.Close()
				return err
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				logging.Logger.Warn("Channel ping failed", "channel_id", c.id, "error", err)
				conn.Close()
				return err
			}
		case <-ctx.Done():
			err := conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"),
				time.Now().Add(WriteTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				logging.Logger.Debug("Failed to send close frame", "channel_id", c.id, "error", err)
			}
			conn.Close()
			return ctx.Err()
		}
	}
}
