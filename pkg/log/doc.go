// Package log defines the event model shared by the debugit dispatcher and
// every sink.
//
// The package holds the pieces that all transports agree on:
//   - Level, the ordered severity table used for filtering
//   - Event, the immutable record handed to each sink
//   - Sink, the contract every destination implements
//   - Render and the wire record, the single-line text form used by the
//     console, file and network sinks
//   - the CBOR capture format and a filtered Reader for capture files
//
// # Levels
//
// Levels are totally ordered: debug < info < warn < error. A level is
// enabled for a threshold when its rank is greater than or equal to the
// threshold's rank:
//
//	log.LevelWarn.Enabled(log.LevelInfo) // true
//	log.LevelDebug.Enabled(log.LevelInfo) // false
//
// # Rendering
//
// Render is a pure function of the Event. Every sink that writes text uses
// it, so entries can be matched textually across console, file and network
// output:
//
//	{"level":"[INFO]-(2024-05-01T10:00:00.000Z)","message":"started","meta":{"port":3001}}
//
// When the dispatcher runs in debug mode the level label is replaced by a
// debug marker:
//
//	{"[DEBUG]":"(2024-05-01T10:00:00.000Z) ---> ","message":"started"}
//
// # Capture Files
//
// Events can also be persisted in CBOR form (integer keys, RFC 3339
// timestamps with nanosecond precision). The debugit-log CLI reads these
// files for viewing, filtering and export.
package log
