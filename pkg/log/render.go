package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Wire record keys.
const (
	WireKeyLevel   = "level"
	WireKeyDebug   = "[DEBUG]"
	WireKeyMessage = "message"
	WireKeyMeta    = "meta"
)

// TimestampLayout is the header timestamp format: UTC, millisecond
// precision, ISO 8601 with a literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const debugArrow = " ---> "

// badMetaKey replaces metadata that cannot be encoded as JSON.
const badMetaKey = "!BADMETA"

// ErrMalformedWire is returned by ParseWire for input that is not a wire record.
var ErrMalformedWire = errors.New("malformed wire record")

// FormatTimestamp formats t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Header builds the record header. Normal mode yields
// "[INFO]-(2024-05-01T10:00:00.000Z)"; debug mode yields
// "(2024-05-01T10:00:00.000Z) ---> ".
func Header(level Level, ts time.Time, debugMode bool) string {
	if debugMode {
		return "(" + FormatTimestamp(ts) + ")" + debugArrow
	}
	return "[" + level.Label() + "]-(" + FormatTimestamp(ts) + ")"
}

// Render returns the single-line wire form of e without a trailing newline.
// The output depends only on e.
func Render(e Event) string {
	return string(AppendWire(nil, e))
}

// AppendWire appends the wire form of e to dst. Keys are always written in
// the order header, message, meta; meta is written only when the event
// carries metadata.
func AppendWire(dst []byte, e Event) []byte {
	key := WireKeyLevel
	if e.DebugMode {
		key = WireKeyDebug
	}

	dst = append(dst, '{')
	dst = appendKey(dst, key)
	dst = append(dst, encodeJSON(Header(e.Level, e.Timestamp, e.DebugMode))...)
	dst = append(dst, ',')
	dst = appendKey(dst, WireKeyMessage)
	dst = append(dst, encodeJSON(e.Message)...)

	if e.HasMetadata() {
		dst = append(dst, ',')
		dst = appendKey(dst, WireKeyMeta)
		dst = append(dst, encodeMeta(e.Metadata)...)
	}

	return append(dst, '}')
}

func appendKey(dst []byte, key string) []byte {
	dst = append(dst, encodeJSON(key)...)
	return append(dst, ':')
}

func encodeMeta(meta map[string]any) []byte {
	b, err := marshalJSON(meta)
	if err != nil {
		b, _ = marshalJSON(map[string]string{badMetaKey: err.Error()})
	}
	return b
}

// encodeJSON is for values that always encode (strings).
func encodeJSON(v any) []byte {
	b, _ := marshalJSON(v)
	return b
}

// marshalJSON encodes without HTML escaping and without the trailing newline
// json.Encoder adds. Map keys are sorted by encoding/json.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// WireRecord is a decoded wire line.
type WireRecord struct {
	// Header is the value of the level or debug key.
	Header string

	// Debug is true when the record used the debug key.
	Debug bool

	Message string

	// Meta is nil when the record had no meta key.
	Meta map[string]any
}

// ParseWire decodes one wire line.
func ParseWire(data []byte) (WireRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return WireRecord{}, fmt.Errorf("%w: %w", ErrMalformedWire, err)
	}

	var rec WireRecord

	headerRaw, ok := raw[WireKeyDebug]
	if ok {
		rec.Debug = true
	} else if headerRaw, ok = raw[WireKeyLevel]; !ok {
		return WireRecord{}, fmt.Errorf("%w: no %q or %q key", ErrMalformedWire, WireKeyLevel, WireKeyDebug)
	}
	if err := json.Unmarshal(headerRaw, &rec.Header); err != nil {
		return WireRecord{}, fmt.Errorf("%w: header: %w", ErrMalformedWire, err)
	}

	if msgRaw, ok := raw[WireKeyMessage]; ok {
		if err := json.Unmarshal(msgRaw, &rec.Message); err != nil {
			return WireRecord{}, fmt.Errorf("%w: message: %w", ErrMalformedWire, err)
		}
	}

	if metaRaw, ok := raw[WireKeyMeta]; ok {
		rec.Meta = map[string]any{}
		if err := json.Unmarshal(metaRaw, &rec.Meta); err != nil {
			return WireRecord{}, fmt.Errorf("%w: meta: %w", ErrMalformedWire, err)
		}
	}

	return rec, nil
}

// Level returns the level named in a normal-mode header. Debug records do
// not carry a level and return false.
func (r WireRecord) Level() (Level, bool) {
	if r.Debug || !strings.HasPrefix(r.Header, "[") {
		return 0, false
	}
	end := strings.Index(r.Header, "]")
	if end < 0 {
		return 0, false
	}
	lvl, err := ParseLevel(r.Header[1:end])
	if err != nil {
		return 0, false
	}
	return lvl, true
}

// Timestamp parses the time embedded in the header.
func (r WireRecord) Timestamp() (time.Time, error) {
	start := strings.Index(r.Header, "(")
	end := strings.Index(r.Header, ")")
	if start < 0 || end <= start {
		return time.Time{}, fmt.Errorf("%w: no timestamp in header %q", ErrMalformedWire, r.Header)
	}
	return time.Parse(TimestampLayout, r.Header[start+1:end])
}
