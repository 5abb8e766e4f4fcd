package relay

import (
	"time"

	"github.com/gorilla/websocket"
)

// keepAlive monitors peer liveness on a WebSocket connection with ping and
// pong control frames.
type keepAlive struct {
	interval     time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration
}

func newKeepAlive(cfg Config) keepAlive {
	return keepAlive{
		interval:     cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (k keepAlive) enabled() bool {
	return k.interval > 0
}

// detectionDelay is the longest a silent peer goes unnoticed.
func (k keepAlive) detectionDelay() time.Duration {
	return k.interval + k.pongTimeout
}

// arm installs the read deadline and the pong handler that extends it.
// Must be called before the read loop starts.
func (k keepAlive) arm(conn *websocket.Conn) {
	conn.SetReadLimit(maxInboundMessage)
	if !k.enabled() {
		return
	}
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(k.detectionDelay()))
	}
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })
}

// run sends a ping every interval until done is closed or a ping fails.
// The failure is passed to onError.
func (k keepAlive) run(conn *websocket.Conn, done <-chan struct{}, onError func(error)) {
	if !k.enabled() {
		return
	}
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(k.writeTimeout)); err != nil {
				onError(err)
				return
			}
		}
	}
}
