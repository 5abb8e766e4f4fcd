package log

import (
	"maps"
	"slices"
	"time"
)

// Event is one logged occurrence. It is built once per enabled log call and
// shared by every sink in the fan-out, so sinks must treat it as read-only,
// including the Metadata map.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Level is the severity at emission time.
	Level Level `cbor:"1,keyasint"`

	// Message is the human-readable payload. Empty when omitted.
	Message string `cbor:"2,keyasint"`

	// Metadata is optional attached context. A nil map means no metadata
	// was supplied; an empty non-nil map means an empty mapping was.
	Metadata map[string]any `cbor:"3,keyasint"`

	// Timestamp is captured when the event is built.
	Timestamp time.Time `cbor:"4,keyasint"`

	// DebugMode echoes the dispatcher setting so sinks can swap the level
	// label for a debug marker.
	DebugMode bool `cbor:"5,keyasint,omitempty"`

	// Source identifies the call site, e.g. "[main.go:42]". Optional.
	Source string `cbor:"6,keyasint,omitempty"`
}

// NewEvent builds an Event. The metadata is copied, including nested
// map[string]any, []any, map[string]string and []string values, so later
// changes by the caller do not leak into sinks that are still processing
// the event. Other reference values (pointers, structs holding maps) are
// shared and must not be mutated after the call.
func NewEvent(level Level, message string, metadata map[string]any, ts time.Time, debugMode bool, source string) Event {
	return Event{
		Level:     level,
		Message:   message,
		Metadata:  cloneMetadata(metadata),
		Timestamp: ts,
		DebugMode: debugMode,
		Source:    source,
	}
}

// HasMetadata reports whether metadata was supplied, even if empty.
func (e Event) HasMetadata() bool {
	return e.Metadata != nil
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the container types JSON and CBOR decoding
// produce. Nil containers stay nil so they still encode as null.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMetadata(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]string:
		return maps.Clone(val)
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
