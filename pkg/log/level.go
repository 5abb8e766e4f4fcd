package log

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLevel is returned when a level name cannot be parsed.
var ErrUnknownLevel = errors.New("unknown log level")

// Level is the severity of an Event.
type Level uint8

const (
	// LevelDebug is for detailed diagnostic output.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for conditions that may need attention.
	LevelWarn

	// LevelError is for failures.
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Label returns the uppercase level name used in rendered headers.
func (l Level) Label() string {
	return strings.ToUpper(l.String())
}

// Rank returns the position of the level in the total order.
// debug=0, info=1, warn=2, error=3.
func (l Level) Rank() int {
	return int(l)
}

// Enabled reports whether events at level l pass the threshold min.
func (l Level) Enabled(min Level) bool {
	return l.Rank() >= min.Rank()
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l <= LevelError
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name. Matching is case-insensitive and
// "warning" is accepted as an alias for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// AllLevels returns every level in ascending order.
func AllLevels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// LevelStrings returns the names of every level in ascending order.
func LevelStrings() []string {
	levels := AllLevels()
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return names
}
