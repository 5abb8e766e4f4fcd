// Package console writes rendered events to an io.Writer, typically
// standard output.
package console

import (
	"io"
	"os"
	"sync"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// Sink writes one wire line per event.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	errW   io.Writer
	errMin log.Level
	buf    []byte
}

// Option configures a console Sink.
type Option func(*Sink)

// WithErrorWriter sends events at or above min to w instead of the main
// writer, e.g. warnings and errors to stderr.
func WithErrorWriter(w io.Writer, min log.Level) Option {
	return func(s *Sink) {
		s.errW = w
		s.errMin = min
	}
}

// New creates a console Sink writing to w. A nil w uses os.Stdout.
func New(w io.Writer, opts ...Option) *Sink {
	if w == nil {
		w = os.Stdout
	}
	s := &Sink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver writes the rendered event followed by a newline.
func (s *Sink) Deliver(event log.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = log.AppendWire(s.buf[:0], event)
	s.buf = append(s.buf, '\n')

	w := s.w
	if s.errW != nil && event.Level.Enabled(s.errMin) {
		w = s.errW
	}
	_, err := w.Write(s.buf)
	return err
}

// Compile-time interface satisfaction check.
var _ log.Sink = (*Sink)(nil)
