package discovery

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of relay servers.
	ServiceType = "_debugit._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultBrowseTimeout bounds Find when the context has no deadline.
	DefaultBrowseTimeout = 3 * time.Second

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record key constants.
const (
	TXTKeyVersion = "v"
	TXTKeyAuth    = "auth"
	TXTKeyPath    = "path"
	TXTKeyTLS     = "tls"
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXT          = errors.New("invalid TXT record value")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrInvalidPort         = errors.New("invalid port")
)

// RelayInfo is what a relay server publishes about itself.
type RelayInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Port is the relay's listening port.
	Port int

	// Version is the relay protocol version ("major.minor").
	Version string

	// Auth reports whether viewers must supply a password.
	Auth bool

	// Path is the WebSocket path.
	Path string

	// TLS reports whether the relay uses wss.
	TLS bool
}

// Service is a relay server found on the network.
type Service struct {
	RelayInfo

	// Host is the advertised host name.
	Host string

	// Addresses holds every address reported for the instance.
	Addresses []string
}

// URL returns the WebSocket URL of the service, using the first known
// address or the host name when no address was reported.
func (s Service) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	scheme := "ws"
	if s.TLS {
		scheme = "wss"
	}
	path := s.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(s.Port)),
		Path:   path,
	}
	return u.String()
}
