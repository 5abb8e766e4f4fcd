package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/version"
)

// WatchConfig configures Watch.
type WatchConfig struct {
	// URL of the relay server.
	URL string

	// Password is sent as the password query parameter when set.
	Password string

	HandshakeTimeout time.Duration

	TLS *TLSConfig
}

// Watch connects to a relay server as a viewer and calls fn for every
// record received. It returns nil when ctx is done or the server closes the
// connection normally.
func Watch(ctx context.Context, cfg WatchConfig, fn func(log.WireRecord)) error {
	if cfg.URL == "" {
		return ErrMissingTarget
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}

	tlsConfig, err := NewClientTLSConfig(cfg.TLS)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     version.SupportedSubprotocols(),
		TLSClientConfig:  tlsConfig,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, withPassword(cfg.URL, cfg.Password), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", redact(cfg.URL), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(DefaultWriteTimeout))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Text == reasonInvalidPassword {
				return ErrUnauthorized
			}
			return fmt.Errorf("read: %w", err)
		}

		rec, err := log.ParseWire(data)
		if err != nil {
			continue
		}
		fn(rec)
	}
}
