package relay

import (
	"log/slog"

	"github.com/debugit-log/debugit-go/pkg/connection"
)

// Option configures a Server or Client.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	metrics       *Metrics
	onStateChange func(oldState, newState connection.State)
	onViewer      func(id string, joined bool)
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	return o
}

// WithLogger sets the diagnostic logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics shares a metrics set between transports. By default each
// transport gets its own.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithStateHook observes client connection state changes.
func WithStateHook(fn func(oldState, newState connection.State)) Option {
	return func(o *options) { o.onStateChange = fn }
}

// WithViewerHook observes viewers joining and leaving a server's broadcast
// set.
func WithViewerHook(fn func(id string, joined bool)) Option {
	return func(o *options) { o.onViewer = fn }
}
