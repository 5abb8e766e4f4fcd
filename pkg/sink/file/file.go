// Package file appends events to a file, rotating it to a ".old" sibling
// once it grows past a size limit.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// RotatedSuffix is appended to the path of a rotated file.
const RotatedSuffix = ".old"

// Format selects the on-disk encoding.
type Format string

const (
	// FormatJSON writes one wire line per event.
	FormatJSON Format = "json"
	// FormatCBOR writes a CBOR capture readable by log.Reader.
	FormatCBOR Format = "cbor"
)

var (
	// ErrClosed is returned by Deliver after Close.
	ErrClosed = errors.New("file sink closed")

	// ErrUnknownFormat is returned for an unsupported Format.
	ErrUnknownFormat = errors.New("unknown file format")
)

// ParseFormat parses a format name. Empty means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Sink appends events to a file. It is safe for concurrent use.
type Sink struct {
	path    string
	maxSize int64
	format  Format
	perm    fs.FileMode

	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	buf     []byte
	closed  bool
}

// Option configures a file Sink.
type Option func(*Sink)

// WithMaxSize rotates the file once it is larger than n bytes. Zero (the
// default) never rotates.
func WithMaxSize(n int64) Option {
	return func(s *Sink) { s.maxSize = n }
}

// WithFormat sets the encoding. The default is FormatJSON.
func WithFormat(f Format) Option {
	return func(s *Sink) { s.format = f }
}

// WithPerm sets the permission bits for newly created files.
func WithPerm(perm fs.FileMode) Option {
	return func(s *Sink) { s.perm = perm }
}

// New creates the parent directory of path if needed and opens path for
// appending.
func New(path string, opts ...Option) (*Sink, error) {
	s := &Sink{
		path:   path,
		format: FormatJSON,
		perm:   0o644,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.format != FormatJSON && s.format != FormatCBOR {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, s.format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file path.
func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) open() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, s.perm)
	if err != nil {
		return err
	}
	s.file = f
	if s.format == FormatCBOR {
		s.encoder = log.NewEncoder(f)
	}
	return nil
}

// Deliver appends the event, rotating first if the file has outgrown the
// size limit.
func (s *Sink) Deliver(event log.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.rotateIfNeeded(); err != nil {
		return err
	}

	if s.format == FormatCBOR {
		return s.encoder.Encode(event)
	}

	s.buf = log.AppendWire(s.buf[:0], event)
	s.buf = append(s.buf, '\n')
	_, err := s.file.Write(s.buf)
	return err
}

// rotateIfNeeded checks the size on disk, so a file that was removed or
// replaced externally is picked up again.
func (s *Sink) rotateIfNeeded() error {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s.reopen()
	case err != nil:
		return fmt.Errorf("stat %s: %w", s.path, err)
	}

	if s.maxSize <= 0 || info.Size() <= s.maxSize {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close before rotate: %w", err)
	}
	if err := os.Rename(s.path, s.path+RotatedSuffix); err != nil {
		// Keep writing to the oversized file rather than losing events.
		if openErr := s.open(); openErr != nil {
			return errors.Join(err, openErr)
		}
		return fmt.Errorf("rotate %s: %w", s.path, err)
	}
	return s.open()
}

func (s *Sink) reopen() error {
	_ = s.file.Close()
	return s.open()
}

// Close closes the file. Further deliveries return ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Compile-time interface satisfaction check.
var _ log.Sink = (*Sink)(nil)
