package relay

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/debugit-log/debugit-go/pkg/discovery"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/version"
)

// Close reasons sent to viewers.
const (
	reasonInvalidPassword = "Invalid password"
	reasonShutdown        = "relay shutting down"
)

// Server is the broadcast role of the relay transport. Viewers connect over
// WebSocket and receive every delivered event.
type Server struct {
	config   Config
	id       string
	logger   *slog.Logger
	metrics  *Metrics
	registry *PortRegistry
	onViewer func(id string, joined bool)

	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
	keepAlive  keepAlive
	scheme     string
	advertiser *discovery.Advertiser

	// Broadcast set
	viewers   map[*viewer]struct{}
	viewersMu sync.RWMutex

	running   atomic.Bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewServer binds Host:Port and starts serving viewers. The port is claimed
// in registry (which may be nil) before binding; a port already claimed or
// already bound by another process yields ErrPortInUse.
func NewServer(cfg Config, registry *PortRegistry, opts ...Option) (*Server, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeServer
	}
	if cfg.Mode != ModeServer {
		return nil, fmt.Errorf("%w: NewServer called with mode %q", ErrInvalidMode, cfg.Mode)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	s := &Server{
		config:   cfg,
		id:       uuid.New().String(),
		logger:   o.logger.With(slog.String("component", "relay-server")),
		metrics:  o.metrics,
		registry: registry,
		onViewer: o.onViewer,
		viewers:  make(map[*viewer]struct{}),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Subprotocols:     version.SupportedSubprotocols(),
			// Viewers authenticate with the password, not the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		keepAlive: newKeepAlive(cfg),
		scheme:    "ws",
	}

	var tlsConf *tls.Config
	if cfg.TLS != nil {
		var err error
		tlsConf, err = NewServerTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		s.scheme = "wss"
	}

	if registry != nil {
		if err := registry.Acquire(cfg.Port, s.id); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		s.releasePort()
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: port %d: %w", ErrPortInUse, cfg.Port, err)
		}
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	if tlsConf != nil {
		listener = tls.NewListener(listener, tlsConf)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, s)
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, s.metrics.Handler())
	}
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: cfg.HandshakeTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}

	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay server stopped", slog.Any("error", err))
		}
	}()

	if cfg.Advertise {
		s.advertise()
	}

	s.logger.Info("relay server listening",
		slog.String("url", s.URL()),
		slog.Bool("auth", s.authRequired()))

	return s, nil
}

// advertise publishes the server over mDNS. Failure is reported but not
// fatal: the relay works without discovery.
func (s *Server) advertise() {
	name := s.config.InstanceName
	if name == "" {
		host, _ := os.Hostname()
		name = discovery.InstanceName(host, s.Port())
	}

	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	err := adv.Advertise(&discovery.RelayInfo{
		Instance: name,
		Port:     s.Port(),
		Version:  version.Current,
		Auth:     s.authRequired(),
		Path:     s.config.Path,
		TLS:      s.scheme == "wss",
	})
	if err != nil {
		s.logger.Warn("mDNS advertisement failed", slog.Any("error", err))
		return
	}
	s.advertiser = adv
}

// Mode returns ModeServer.
func (s *Server) Mode() Mode { return ModeServer }

// ID returns the server's unique identifier (its port registry owner name).
func (s *Server) ID() string { return s.id }

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Port returns the bound port.
func (s *Server) Port() int {
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.config.Port
}

// URL returns the URL viewers connect to, without credentials.
func (s *Server) URL() string {
	u := url.URL{
		Scheme: s.scheme,
		Host:   net.JoinHostPort(s.config.Host, strconv.Itoa(s.Port())),
		Path:   s.config.Path,
	}
	return u.String()
}

// ViewerCount returns the size of the broadcast set.
func (s *Server) ViewerCount() int {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()
	return len(s.viewers)
}

// HasViewer reports whether a viewer with the given id is in the broadcast
// set.
func (s *Server) HasViewer(id string) bool {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()
	for v := range s.viewers {
		if v.id == id {
			return true
		}
	}
	return false
}

func (s *Server) authRequired() bool {
	return s.config.Password != "" || s.config.PasswordHash != ""
}

// authorize checks the supplied credential. Without a configured password
// every viewer is accepted.
func (s *Server) authorize(supplied string) bool {
	if s.config.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.config.PasswordHash), []byte(supplied)) == nil
	}
	if s.config.Password != "" {
		return subtle.ConstantTimeCompare([]byte(s.config.Password), []byte(supplied)) == 1
	}
	return true
}

// ServeHTTP upgrades a viewer connection and adds it to the broadcast set.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.running.Load() {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusUpgradeRequired)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Debug("viewer upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	if !s.authorize(r.URL.Query().Get(PasswordParam)) {
		s.metrics.connection("rejected")
		s.logger.Warn("viewer rejected: invalid password", slog.String("remote", r.RemoteAddr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reasonInvalidPassword),
			time.Now().Add(s.config.WriteTimeout))
		_ = conn.Close()
		return
	}

	v := newViewer(s, conn, uuid.New().String(), r.RemoteAddr)
	if !s.addViewer(v) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, reasonShutdown),
			time.Now().Add(s.config.WriteTimeout))
		_ = conn.Close()
		return
	}
	s.metrics.connection("accepted")
}

// addViewer registers v and starts its pumps. It fails once the server is
// closing, so no goroutine is started after Close began waiting.
func (s *Server) addViewer(v *viewer) bool {
	s.viewersMu.Lock()
	if !s.running.Load() {
		s.viewersMu.Unlock()
		return false
	}
	s.viewers[v] = struct{}{}
	n := len(s.viewers)
	s.wg.Add(3)
	s.viewersMu.Unlock()

	go func() {
		defer s.wg.Done()
		v.writePump()
	}()
	go func() {
		defer s.wg.Done()
		v.readPump()
	}()
	go func() {
		defer s.wg.Done()
		s.keepAlive.run(v.conn, v.done, func(err error) { s.removeViewer(v, err) })
	}()

	s.metrics.setViewers(n)
	s.logger.Info("viewer connected",
		slog.String("viewer", v.id),
		slog.String("remote", v.remoteAddr),
		slog.String("subprotocol", v.conn.Subprotocol()))
	if s.onViewer != nil {
		s.onViewer(v.id, true)
	}
	return true
}

// removeViewer drops v from the broadcast set and closes it. Safe to call
// from several pumps for the same viewer.
func (s *Server) removeViewer(v *viewer, cause error) {
	s.viewersMu.Lock()
	_, member := s.viewers[v]
	delete(s.viewers, v)
	n := len(s.viewers)
	s.viewersMu.Unlock()

	v.close(websocket.CloseNormalClosure, "")
	if !member {
		return
	}

	s.metrics.setViewers(n)
	attrs := []any{slog.String("viewer", v.id), slog.String("remote", v.remoteAddr)}
	if cause != nil && !isExpectedClose(cause) {
		attrs = append(attrs, slog.Any("error", cause))
	}
	s.logger.Info("viewer disconnected", attrs...)
	if s.onViewer != nil {
		s.onViewer(v.id, false)
	}
}

// snapshot copies the broadcast set so delivery never iterates the live map.
func (s *Server) snapshot() []*viewer {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()

	out := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		out = append(out, v)
	}
	return out
}

// Deliver renders event and queues it for every viewer. Viewers whose send
// buffer is full miss the event. After Close, Deliver is a no-op.
func (s *Server) Deliver(event log.Event) error {
	if !s.running.Load() {
		return nil
	}

	payload := log.AppendWire(nil, event)
	for _, v := range s.snapshot() {
		if v.enqueue(payload) {
			s.metrics.message(ModeServer, outcomeSent)
		} else {
			s.metrics.message(ModeServer, outcomeSkipped)
		}
	}
	return nil
}

// Close stops listening, disconnects every viewer and releases the port.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.viewersMu.Lock()
		s.running.Store(false)
		s.viewersMu.Unlock()

		if s.advertiser != nil {
			s.advertiser.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		err = s.httpServer.Shutdown(ctx)
		cancel()

		for _, v := range s.snapshot() {
			v.close(websocket.CloseGoingAway, reasonShutdown)
		}

		s.wg.Wait()

		s.viewersMu.Lock()
		clear(s.viewers)
		s.viewersMu.Unlock()
		s.metrics.setViewers(0)

		s.releasePort()
		s.logger.Info("relay server closed", slog.String("url", s.URL()))
	})
	return err
}

func (s *Server) releasePort() {
	if s.registry != nil {
		s.registry.Release(s.config.Port, s.id)
	}
}

// isExpectedClose reports errors that are the normal end of a connection.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed)
}

// Compile-time interface satisfaction checks.
var (
	_ log.Sink     = (*Server)(nil)
	_ http.Handler = (*Server)(nil)
)
