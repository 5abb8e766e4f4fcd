package relay

import (
	"fmt"
	"io"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// Transport is a relay endpoint in either role. It is a log sink that
// owns its socket until Close.
type Transport interface {
	log.Sink
	io.Closer

	// Mode returns the role of the transport.
	Mode() Mode
}

// New constructs the transport for cfg.Mode. Configuration errors
// (ErrInvalidMode, ErrMissingTarget, ErrPortInUse, ErrInvalidConfig) are
// returned here and never deferred to Deliver. registry is only used by the
// server role and may be nil.
func New(cfg Config, registry *PortRegistry, opts ...Option) (Transport, error) {
	switch cfg.Mode {
	case ModeServer:
		s, err := NewServer(cfg, registry, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ModeClient:
		c, err := NewClient(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*Server)(nil)
	_ Transport = (*Client)(nil)
)
