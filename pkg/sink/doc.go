// Package sink groups the built-in log.Sink implementations.
//
// Every sink renders events with the shared wire form from package log, so
// the same event produces the same line on the console, in a file, in a
// Kafka message and on a relay viewer:
//
//   - console: one wire line per event to an io.Writer
//   - file: appended wire lines (or a CBOR capture) with .old rotation
//   - kafka: wire line as the message value via segmentio/kafka-go
//   - opensearch: one document per event in a daily index
package sink
