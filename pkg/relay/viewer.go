package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGrace bounds the write of a close frame to a peer that may no longer
// be reading.
const closeGrace = time.Second

// viewer is one authenticated member of a server's broadcast set.
type viewer struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	server     *Server

	// Rendered events waiting for the write pump.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newViewer(s *Server, conn *websocket.Conn, id, remoteAddr string) *viewer {
	return &viewer{
		id:         id,
		remoteAddr: remoteAddr,
		conn:       conn,
		server:     s,
		send:       make(chan []byte, s.config.SendBuffer),
		done:       make(chan struct{}),
	}
}

// enqueue hands payload to the write pump without blocking. It returns
// false when the viewer is closing or its buffer is full.
func (v *viewer) enqueue(payload []byte) bool {
	select {
	case <-v.done:
		return false
	default:
	}

	select {
	case v.send <- payload:
		return true
	default:
		return false
	}
}

// writePump is the only writer of data frames on conn.
func (v *viewer) writePump() {
	for {
		select {
		case <-v.done:
			return
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(v.server.config.WriteTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				v.server.metrics.message(ModeServer, outcomeFailed)
				v.server.removeViewer(v, err)
				return
			}
		}
	}
}

// readPump discards inbound data and detects disconnects. Control frames
// (ping, pong, close) are handled by the websocket library while reading.
func (v *viewer) readPump() {
	v.server.keepAlive.arm(v.conn)
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			v.server.removeViewer(v, err)
			return
		}
	}
}

// close stops the pumps and closes the connection, sending a close frame
// first when code is non-zero.
func (v *viewer) close(code int, reason string) {
	v.closeOnce.Do(func() {
		close(v.done)
		if code != 0 {
			_ = v.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(closeGrace))
		}
		_ = v.conn.Close()
	})
}
