package debugit

import (
	"log/slog"
	"time"

	"github.com/debugit-log/debugit-go/internal/diag"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

// DefaultQueueSize is the per-sink queue capacity.
const DefaultQueueSize = 256

// Option configures a Logger.
type Option func(*options)

type options struct {
	source    bool
	clock     func() time.Time
	queueSize int
	logger    *slog.Logger
	reporter  *diag.Reporter
	registry  *relay.PortRegistry
	relayOpts []relay.Option
}

func buildOptions(opts []Option) options {
	o := options{
		clock:     time.Now,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.reporter == nil {
		o.reporter = diag.NewReporter(o.logger)
	}
	return o
}

// WithSource enables call-site capture for the leveled methods.
func WithSource(enabled bool) Option {
	return func(o *options) { o.source = enabled }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithQueueSize sets the per-sink queue capacity. Values below 1 are
// clamped to 1.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.queueSize = n
	}
}

// WithLogger sets the diagnostic logger used for the logger's own
// failures and passed to the relay transport.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithReporter sets the reporter that receives sink failures. By default
// one is built on the diagnostic logger.
func WithReporter(r *diag.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithPortRegistry sets the registry a relay server claims its port in.
// Without one, port conflicts are only detected by the operating system.
func WithPortRegistry(r *relay.PortRegistry) Option {
	return func(o *options) { o.registry = r }
}

// WithRelayOptions passes options to the relay transport.
func WithRelayOptions(opts ...relay.Option) Option {
	return func(o *options) { o.relayOpts = append(o.relayOpts, opts...) }
}
