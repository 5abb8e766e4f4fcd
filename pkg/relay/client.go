package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/debugit-log/debugit-go/pkg/connection"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/version"
)

// Client is the relay-client role: it pushes every delivered event to a
// remote relay and reconnects after any failure.
type Client struct {
	config  Config
	target  string
	header  http.Header
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *Metrics

	manager       *connection.Manager
	keepAlive     keepAlive
	onStateChange func(oldState, newState connection.State)

	mu     sync.Mutex
	conn   *clientConn
	closed bool

	wg sync.WaitGroup
}

// clientConn is one established connection.
type clientConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close(code int, reason string) {
	cc.closeOnce.Do(func() {
		close(cc.done)
		if code != 0 {
			_ = cc.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(closeGrace))
		}
		_ = cc.ws.Close()
	})
}

// NewClient validates cfg and starts connecting in the background. It fails
// immediately with ErrMissingTarget when cfg.URL is empty; no connection is
// attempted in that case.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeClient
	}
	if cfg.Mode != ModeClient {
		return nil, fmt.Errorf("%w: NewClient called with mode %q", ErrInvalidMode, cfg.Mode)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConf, err := NewClientTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	o := buildOptions(opts)
	c := &Client{
		config:  cfg,
		target:  withPassword(cfg.URL, cfg.Password),
		header:  header,
		logger:  o.logger.With(slog.String("component", "relay-client")),
		metrics: o.metrics,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subprotocols:     version.SupportedSubprotocols(),
			TLSClientConfig:  tlsConf,
		},
		keepAlive:     newKeepAlive(cfg),
		onStateChange: o.onStateChange,
	}

	c.manager = connection.NewManager(c.connect, cfg.ReconnectInterval)
	c.manager.OnStateChange(c.stateChanged)
	c.manager.OnConnected(c.connected)
	c.manager.OnDisconnected(func(err error) {
		c.logger.Warn("relay connection lost",
			slog.String("url", c.Target()),
			slog.Any("error", err),
			slog.Duration("retry_in", c.manager.Interval()))
	})
	c.manager.OnReconnecting(func(failures int, delay time.Duration) {
		c.logger.Debug("relay reconnect scheduled",
			slog.Int("failures", failures),
			slog.Duration("delay", delay))
	})

	if err := c.manager.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// Mode returns ModeClient.
func (c *Client) Mode() Mode { return ModeClient }

// Metrics returns the client's metrics.
func (c *Client) Metrics() *Metrics { return c.metrics }

// State returns the connection state.
func (c *Client) State() connection.State {
	return c.manager.State()
}

// Failures returns the number of consecutive failed connection attempts.
func (c *Client) Failures() int {
	return c.manager.Failures()
}

// LastError returns the most recent dial error or connection-loss cause,
// or nil when there has been none.
func (c *Client) LastError() error {
	return c.manager.LastError()
}

// Target returns the relay URL with the password redacted.
func (c *Client) Target() string {
	return redact(c.target)
}

// connect is the connection.ConnectFunc: one dial attempt.
func (c *Client) connect(ctx context.Context) error {
	c.metrics.attempt()

	ws, resp, err := c.dialer.DialContext(ctx, c.target, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.logger.Debug("relay dial failed", slog.String("url", c.Target()), slog.Any("error", err))
		return fmt.Errorf("dial %s: %w", c.Target(), err)
	}

	cc := &clientConn{ws: ws, done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cc.close(websocket.CloseNormalClosure, "")
		return ErrClosed
	}
	c.conn = cc
	c.mu.Unlock()
	return nil
}

// connected runs after the manager entered Connected and starts the pumps
// for the connection installed by connect.
func (c *Client) connected() {
	c.mu.Lock()
	cc := c.conn
	if cc == nil || c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(2)
	c.mu.Unlock()

	c.keepAlive.arm(cc.ws)
	go func() {
		defer c.wg.Done()
		for {
			if _, _, err := cc.ws.ReadMessage(); err != nil {
				c.connectionLost(cc, err)
				return
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		c.keepAlive.run(cc.ws, cc.done, func(err error) { c.connectionLost(cc, err) })
	}()

	c.logger.Info("relay connected", slog.String("url", c.Target()))
}

// connectionLost tears down cc and hands control to the reconnect state
// machine. Reports for a connection that is no longer current are ignored.
func (c *Client) connectionLost(cc *clientConn, cause error) {
	c.mu.Lock()
	if c.conn != cc {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	closed := c.closed
	c.mu.Unlock()

	cc.close(0, "")
	if closed {
		return
	}
	c.manager.NotifyConnectionLost(cause)
}

func (c *Client) stateChanged(oldState, newState connection.State) {
	c.metrics.setClientState(float64(newState))
	c.logger.Debug("relay state", slog.String("from", oldState.String()), slog.String("to", newState.String()))
	if c.onStateChange != nil {
		c.onStateChange(oldState, newState)
	}
}

// Deliver sends event when connected. While not connected the event is
// dropped without error. A failed send starts reconnect handling and is not
// returned to the caller.
func (c *Client) Deliver(event log.Event) error {
	c.mu.Lock()
	cc := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed || cc == nil || !c.manager.IsConnected() {
		c.metrics.message(ModeClient, outcomeDropped)
		return nil
	}

	payload := log.AppendWire(nil, event)

	cc.writeMu.Lock()
	_ = cc.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := cc.ws.WriteMessage(websocket.TextMessage, payload)
	cc.writeMu.Unlock()

	if err != nil {
		c.metrics.message(ModeClient, outcomeFailed)
		c.connectionLost(cc, err)
		return nil
	}
	c.metrics.message(ModeClient, outcomeSent)
	return nil
}

// Close cancels any pending reconnect, closes the active connection and
// waits for the client's goroutines. Further deliveries are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cc := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.manager.Close()
	if cc != nil {
		cc.close(websocket.CloseNormalClosure, "")
	}
	c.wg.Wait()

	c.logger.Info("relay client closed", slog.String("url", c.Target()))
	return nil
}

// Compile-time interface satisfaction check.
var _ log.Sink = (*Client)(nil)
