package relay

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Mode selects the relay role.
type Mode string

const (
	ModeServer Mode = "server"
	ModeClient Mode = "client"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeServer, ModeClient:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Defaults.
const (
	DefaultPort              = 3001
	DefaultHost              = "localhost"
	DefaultPath              = "/"
	DefaultReconnectInterval = 5000 * time.Millisecond
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPongTimeout       = 10 * time.Second
	DefaultSendBuffer        = 64

	// PasswordParam is the query parameter carrying the viewer credential.
	PasswordParam = "password"

	// maxInboundMessage caps messages read from peers; relays never expect
	// more than control traffic from them.
	maxInboundMessage = 4096
)

// Config configures a relay transport.
type Config struct {
	// Mode selects server or client role.
	Mode Mode

	// Server role: listen address and WebSocket path.
	Host string
	Port int
	Path string

	// Password required from viewers (server) or sent to the relay (client).
	Password string

	// PasswordHash is a bcrypt hash checked instead of Password (server).
	PasswordHash string

	// URL is the relay to connect to (client). Required in client mode.
	URL string

	// Headers are added to the client's handshake request.
	Headers map[string]string

	// ReconnectInterval is the fixed delay between client attempts.
	ReconnectInterval time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Keep-alive settings. A negative PingInterval disables pings.
	PingInterval time.Duration
	PongTimeout  time.Duration

	// SendBuffer is the per-viewer queue length (server).
	SendBuffer int

	// Advertise publishes the server over mDNS.
	Advertise bool

	// InstanceName overrides the advertised mDNS instance name.
	InstanceName string

	// MetricsPath serves the relay's prometheus metrics on the relay HTTP
	// server when set (e.g. "/metrics").
	MetricsPath string

	// TLS enables wss. For the server it must name a certificate and key.
	TLS *TLSConfig
}

// DefaultConfig returns a server-mode configuration with every default set.
func DefaultConfig() Config {
	c := Config{Mode: ModeServer}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
}

// Validate checks the configuration for its mode. Defaults are applied to
// a copy first, so zero values are accepted wherever a default exists.
func (c Config) Validate() error {
	c.applyDefaults()

	switch c.Mode {
	case ModeServer:
		return c.validateServer()
	case ModeClient:
		return c.validateClient()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
}

func (c Config) validateServer() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidConfig, c.Path)
	}
	if c.MetricsPath != "" {
		if !strings.HasPrefix(c.MetricsPath, "/") {
			return fmt.Errorf("%w: metrics path %q must start with /", ErrInvalidConfig, c.MetricsPath)
		}
		if c.MetricsPath == c.Path {
			return fmt.Errorf("%w: metrics path equals relay path %q", ErrInvalidConfig, c.Path)
		}
	}
	if c.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return fmt.Errorf("%w: password hash: %w", ErrInvalidConfig, err)
		}
	}
	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("%w: tls requires cert_file and key_file", ErrInvalidConfig)
	}
	return nil
}

func (c Config) validateClient() error {
	if strings.TrimSpace(c.URL) == "" {
		return ErrMissingTarget
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme %q, want ws or wss", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", ErrInvalidConfig, c.URL)
	}
	return nil
}

// withPassword appends the password query parameter to target, using "&"
// when target already carries a query.
func withPassword(target, password string) string {
	if password == "" {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + PasswordParam + "=" + url.QueryEscape(password)
}

// redact hides the password parameter in a target URL for diagnostics.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Has(PasswordParam) {
		q.Set(PasswordParam, "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// HashPassword returns a bcrypt hash suitable for Config.PasswordHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
