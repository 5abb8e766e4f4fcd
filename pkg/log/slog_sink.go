package log

import (
	"context"
	"log/slog"
	"sort"
)

// SlogSink writes events to an slog.Logger.
// Useful when the host application already routes its own logs through slog.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink that writes to the given logger.
// A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Deliver writes the event at the matching slog level.
func (s *SlogSink) Deliver(event Event) error {
	attrs := []slog.Attr{
		slog.Time("event_time", event.Timestamp),
	}
	if event.DebugMode {
		attrs = append(attrs, slog.Bool("debug_mode", true))
	}
	if event.Source != "" {
		attrs = append(attrs, slog.String("source_location", event.Source))
	}
	if event.HasMetadata() {
		keys := make([]string, 0, len(event.Metadata))
		for k := range event.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		meta := make([]any, 0, len(keys))
		for _, k := range keys {
			meta = append(meta, slog.Any(k, event.Metadata[k]))
		}
		attrs = append(attrs, slog.Group("meta", meta...))
	}

	s.logger.LogAttrs(context.Background(), SlogLevel(event.Level), event.Message, attrs...)
	return nil
}

// SlogLevel maps a Level to the corresponding slog.Level.
func SlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Compile-time interface satisfaction check.
var _ Sink = (*SlogSink)(nil)
