package debugit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/debugit-log/debugit-go/internal/diag"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

var (
	// ErrClosed is returned by AddSink after Close.
	ErrClosed = errors.New("logger closed")

	// ErrNilSink is returned when a nil sink is registered.
	ErrNilSink = errors.New("nil sink")

	// ErrSinkPanic wraps a value recovered from a panicking sink.
	ErrSinkPanic = errors.New("sink panicked")
)

// Meta is the metadata attached to an event. A nil Meta means no metadata.
type Meta = map[string]any

// Settings is the dispatcher configuration fixed at construction.
type Settings struct {
	// MinLevel is the lowest level that reaches the sinks.
	MinLevel log.Level

	// DebugMode is echoed into every event. It also enables the relay
	// transport when a relay configuration is passed to New.
	DebugMode bool
}

// Logger filters log calls by level and fans events out to its sinks.
// All methods are safe for concurrent use.
type Logger struct {
	settings Settings
	opts     options
	diag     *slog.Logger
	reporter *diag.Reporter

	// mu guards queues and closed. Log holds the read lock while enqueueing
	// so Close cannot close a channel under it.
	mu     sync.RWMutex
	queues []*sinkQueue
	closed bool

	transport relay.Transport
	dropped   atomic.Uint64
}

// New creates a Logger delivering to sinks. When settings.DebugMode is set
// and relayCfg is non-nil, the relay transport is constructed here and
// registered after sinks; its construction errors (relay.ErrPortInUse,
// relay.ErrMissingTarget, relay.ErrInvalidMode, ...) are returned.
func New(sinks []log.Sink, settings Settings, relayCfg *relay.Config, opts ...Option) (*Logger, error) {
	if !settings.MinLevel.Valid() {
		return nil, fmt.Errorf("%w: %d", log.ErrUnknownLevel, settings.MinLevel)
	}
	for i, s := range sinks {
		if s == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilSink, i)
		}
	}

	o := buildOptions(opts)
	l := &Logger{
		settings: settings,
		opts:     o,
		diag:     o.logger,
		reporter: o.reporter,
	}

	if settings.DebugMode && relayCfg != nil {
		relayOpts := append([]relay.Option{relay.WithLogger(o.logger)}, o.relayOpts...)
		t, err := relay.New(*relayCfg, o.registry, relayOpts...)
		if err != nil {
			return nil, fmt.Errorf("relay: %w", err)
		}
		l.transport = t
		l.diag.Debug("relay transport started", slog.String("mode", string(t.Mode())))
		sinks = append(sinks[:len(sinks):len(sinks)], t)
	}

	for _, s := range sinks {
		l.addQueue(s)
	}
	return l, nil
}

// Settings returns the construction-time settings.
func (l *Logger) Settings() Settings {
	return l.settings
}

// Relay returns the relay transport owned by the logger, or nil.
func (l *Logger) Relay() relay.Transport {
	return l.transport
}

// Enabled reports whether events at level reach the sinks.
func (l *Logger) Enabled(level log.Level) bool {
	return level.Enabled(l.settings.MinLevel)
}

// AddSink registers a sink for all subsequent log calls. Events logged
// before the call are not delivered to it.
func (l *Logger) AddSink(sink log.Sink) error {
	if sink == nil {
		return ErrNilSink
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.addQueueLocked(sink)
	return nil
}

func (l *Logger) addQueue(sink log.Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addQueueLocked(sink)
}

func (l *Logger) addQueueLocked(sink log.Sink) {
	name := fmt.Sprintf("sink[%d] %T", len(l.queues), sink)
	l.queues = append(l.queues, newSinkQueue(name, sink, l.opts.queueSize, l.report))
}

func (l *Logger) report(source string, err error) {
	l.reporter.Report(source, err)
}

// Dropped returns the number of deliveries skipped because a sink's queue
// was full.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Log emits an event at level. Below the minimum level it returns without
// building an event. It never blocks on sink I/O.
func (l *Logger) Log(level log.Level, message string, meta Meta) {
	l.logDepth(1, level, message, meta)
}

// Debug logs at debug level.
func (l *Logger) Debug(message string, meta Meta) {
	l.logDepth(1, log.LevelDebug, message, meta)
}

// Info logs at info level.
func (l *Logger) Info(message string, meta Meta) {
	l.logDepth(1, log.LevelInfo, message, meta)
}

// Warn logs at warn level.
func (l *Logger) Warn(message string, meta Meta) {
	l.logDepth(1, log.LevelWarn, message, meta)
}

// Error logs at error level.
func (l *Logger) Error(message string, meta Meta) {
	l.logDepth(1, log.LevelError, message, meta)
}

// LogAt emits an event with an explicit source location, for callers that
// track their own call sites.
func (l *Logger) LogAt(source string, level log.Level, message string, meta Meta) {
	if !l.Enabled(level) {
		return
	}
	l.dispatch(log.NewEvent(level, message, meta, l.opts.clock(), l.settings.DebugMode, source))
}

// logDepth skips depth frames above itself to find the call site.
func (l *Logger) logDepth(depth int, level log.Level, message string, meta Meta) {
	if !l.Enabled(level) {
		return
	}

	var source string
	if l.opts.source {
		source = callerLocation(depth + 1)
	}
	l.dispatch(log.NewEvent(level, message, meta, l.opts.clock(), l.settings.DebugMode, source))
}

func (l *Logger) dispatch(event log.Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	for _, q := range l.queues {
		if !q.enqueue(event) {
			l.dropped.Add(1)
		}
	}
}

// callerLocation formats the caller skip frames above it as "[file.go:12]".
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return "[" + filepath.Base(file) + ":" + strconv.Itoa(line) + "]"
}

// Close stops accepting events, waits for queued events to be delivered
// (bounded by ctx), then closes every sink that implements io.Closer,
// including the relay transport. Close is idempotent.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	queues := l.queues
	l.mu.Unlock()

	for _, q := range queues {
		q.stop()
	}

	var errs []error
	for _, q := range queues {
		select {
		case <-q.done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("drain %s: %w", q.name, ctx.Err()))
		}
	}

	for _, q := range queues {
		if c, ok := q.sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", q.name, err))
			}
		}
	}

	return errors.Join(errs...)
}
