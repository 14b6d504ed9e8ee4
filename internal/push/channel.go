package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"classwatch/pkg/types"
)

// Channel is the long-lived websocket notification connection. It
// delivers typed invalidation signals and nothing else; a lost
// connection is reported once and never redialed — polling carries the
// dashboard until the view remounts.
type Channel struct {
	url              string
	handshakeTimeout time.Duration
	readTimeout      time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	reported  sync.Once
	connected bool
}

// controlWait bounds how long a ping or pong control frame may sit in
// the write buffer before the connection is considered dead.
const controlWait = 10 * time.Second

// NewChannel creates an unconnected channel for the given ws:// URL.
func NewChannel(url string, handshakeTimeout, readTimeout time.Duration) *Channel {
	return &Channel{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		readTimeout:      readTimeout,
	}
}

// Connect dials the channel and starts the read loop. handler receives
// each valid notification; closed fires exactly once when delivery
// stops, with nil for a deliberate Close and the transport error
// otherwise.
func (c *Channel) Connect(ctx context.Context, handler func(types.Notification), closed func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return ErrAlreadyConnected
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: %v (status %d)", ErrConnectFailed, err, resp.StatusCode)
		}
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		_ = conn.Close()
		return fmt.Errorf("%w: unexpected status %d", ErrConnectFailed, resp.StatusCode)
	}

	readCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.connected = true

	go c.readLoop(readCtx, conn, handler, closed)

	zap.S().Infow("push channel connected", "url", c.url)
	return nil
}

// readLoop delivers notifications until the connection dies or the
// context is cancelled.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, handler func(types.Notification), closed func(error)) {
	// Unblock ReadMessage when the context goes away.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	// The backend only speaks when state changes, so a long silence is
	// normal. Ping and pong traffic extends the read deadline; without
	// it a healthy idle connection would be declared lost.
	if c.readTimeout > 0 {
		extend := func() error {
			return conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_ = extend()
		conn.SetPongHandler(func(string) error { return extend() })
		conn.SetPingHandler(func(appData string) error {
			_ = extend()
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWait))
		})
		go c.pingLoop(ctx, conn)
	}

	for {
		if c.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				c.report(closed, nil)
			} else {
				zap.S().Warnw("push channel read failed", "error", err)
				c.report(closed, fmt.Errorf("%w: %v", ErrChannelLost, err))
			}
			return
		}

		var notification types.Notification
		if err := json.Unmarshal(data, &notification); err != nil {
			zap.S().Debugw("dropping undecodable push message", "error", err)
			continue
		}
		if err := notification.Validate(); err != nil {
			zap.S().Debugw("dropping push notification", "type", notification.Type, "error", err)
			continue
		}

		handler(notification)
	}
}

// pingLoop pings the server at half the read deadline so the returning
// pongs keep a quiet connection alive. A failed ping write means the
// connection is gone; the read loop notices and reports.
func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.readTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// report invokes the closed callback at most once.
func (c *Channel) report(closed func(error), err error) {
	c.reported.Do(func() {
		if closed != nil {
			closed(err)
		}
	})
}

// Close tears the connection down by cancelling the read context; the
// read loop's watcher owns the socket close, so there is exactly one
// closer. Safe to call repeatedly and before Connect: an early Close is
// a no-op and never consumes the teardown a later Connect will need.
func (c *Channel) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.connected = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
