package relay_test

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

const waitTimeout = 3 * time.Second

var testTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(msg string) log.Event {
	return log.NewEvent(log.LevelInfo, msg, map[string]any{"n": 1}, testTime, false, "")
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func serverConfig(t *testing.T) relay.Config {
	return relay.Config{
		Mode: relay.ModeServer,
		Host: "127.0.0.1",
		Port: freePort(t),
	}
}

func startServer(t *testing.T, cfg relay.Config, reg *relay.PortRegistry, opts ...relay.Option) *relay.Server {
	t.Helper()
	opts = append([]relay.Option{relay.WithLogger(quietLogger())}, opts...)
	s, err := relay.NewServer(cfg, reg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// dialViewer connects to a server, passing password when non-empty.
func dialViewer(t *testing.T, s *relay.Server, password string) *websocket.Conn {
	t.Helper()
	target := s.URL()
	if password != "" {
		target += "?password=" + url.QueryEscape(password)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return string(data)
}

func waitViewers(t *testing.T, s *relay.Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.ViewerCount() == n }, waitTimeout, 5*time.Millisecond)
}

// collector is a bare WebSocket endpoint that records what relay clients
// send to it. It can be stopped and restarted on the same address.
type collector struct {
	t    *testing.T
	addr string

	mu      sync.Mutex
	srv     *http.Server
	conns   []*websocket.Conn
	queries []url.Values
	headers []http.Header

	msgs chan string
}

func newCollector(t *testing.T, port int) *collector {
	c := &collector{
		t:    t,
		addr: net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		msgs: make(chan string, 64),
	}
	t.Cleanup(c.stop)
	return c
}

func (c *collector) URL() string {
	return "ws://" + c.addr + "/"
}

func (c *collector) start() {
	c.t.Helper()

	var ln net.Listener
	require.Eventually(c.t, func() bool {
		var err error
		ln, err = net.Listen("tcp", c.addr)
		return err == nil
	}, waitTimeout, 10*time.Millisecond)

	upgrader := websocket.Upgrader{}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.conns = append(c.conns, conn)
		c.queries = append(c.queries, r.URL.Query())
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			c.msgs <- string(data)
		}
	})}

	c.mu.Lock()
	c.srv = srv
	c.mu.Unlock()

	go func() { _ = srv.Serve(ln) }()
}

// stop closes the listener and drops every connection.
func (c *collector) stop() {
	c.mu.Lock()
	srv := c.srv
	conns := c.conns
	c.srv = nil
	c.conns = nil
	c.mu.Unlock()

	if srv != nil {
		_ = srv.Close()
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (c *collector) connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func (c *collector) next(t *testing.T) string {
	t.Helper()
	select {
	case m := <-c.msgs:
		return m
	case <-time.After(waitTimeout):
		t.Fatal("no message received")
		return ""
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
