package diag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default reporter limits: one report per second per source, with a burst.
const (
	DefaultReportRate  = rate.Limit(1)
	DefaultReportBurst = 5
)

// Reporter logs component failures to a diagnostic logger, rate-limited per
// source so a permanently failing sink cannot flood the side channel.
// Suppressed reports are counted and summarized on the next report that
// gets through. Safe for concurrent use.
type Reporter struct {
	logger *slog.Logger
	limit  rate.Limit
	burst  int

	mu      sync.Mutex
	sources map[string]*sourceState
}

type sourceState struct {
	limiter    *rate.Limiter
	suppressed int
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithRate sets the per-source report rate and burst.
func WithRate(limit rate.Limit, burst int) ReporterOption {
	return func(r *Reporter) {
		if burst < 1 {
			burst = 1
		}
		r.limit = limit
		r.burst = burst
	}
}

// NewReporter creates a Reporter. A nil logger uses slog.Default().
func NewReporter(logger *slog.Logger, opts ...ReporterOption) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		logger:  logger,
		limit:   DefaultReportRate,
		burst:   DefaultReportBurst,
		sources: make(map[string]*sourceState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the underlying diagnostic logger.
func (r *Reporter) Logger() *slog.Logger {
	return r.logger
}

// Report logs err for source unless the source is over its rate.
// It reports whether the message was written.
func (r *Reporter) Report(source string, err error, attrs ...slog.Attr) bool {
	if r == nil || err == nil {
		return false
	}

	r.mu.Lock()
	st, ok := r.sources[source]
	if !ok {
		st = &sourceState{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.sources[source] = st
	}
	if !st.limiter.AllowN(time.Now(), 1) {
		st.suppressed++
		r.mu.Unlock()
		return false
	}
	suppressed := st.suppressed
	st.suppressed = 0
	r.mu.Unlock()

	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all, slog.String("source", source), slog.Any("error", err))
	if suppressed > 0 {
		all = append(all, slog.Int("suppressed", suppressed))
	}
	all = append(all, attrs...)

	r.logger.LogAttrs(context.Background(), slog.LevelError, "debugit component failure", all...)
	return true
}

// Suppressed returns the number of reports dropped for source since its
// last written report.
func (r *Reporter) Suppressed(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.sources[source]; ok {
		return st.suppressed
	}
	return 0
}
