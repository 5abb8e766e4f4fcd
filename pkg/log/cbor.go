package log

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// captureEncMode writes capture records. Events are re-rendered from
// captures by debugit-log, so the decoded Event must render to the same wire
// line as the original: canonical map order keeps two captures of the same
// event byte-identical, and RFC 3339 nano timestamps keep the UTC location
// and sub-millisecond precision that a Unix-seconds encoding would lose.
var captureEncMode cbor.EncMode

// captureDecMode reads capture records. It accepts indefinite-length items
// and duplicate keys so captures written by other CBOR encoders still load.
var captureDecMode cbor.DecMode

func init() {
	var err error

	// Nil metadata encodes as null and empty metadata as an empty map, so a
	// decoded event keeps "meta" omitted or "meta":{} exactly as logged.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	captureEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR encoder mode: %v", err))
	}

	// Nested metadata maps decode as map[string]any rather than the
	// library's map[any]any default, which encoding/json cannot marshal.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
	}
	captureDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes. Field keys are the small
// integers from the Event struct tags.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := captureDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder creates a CBOR encoder for capture events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return captureEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for capture events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return captureDecMode.NewDecoder(r)
}
