// Package kafka publishes events to a Kafka topic. Each message carries the
// rendered wire line as its value and the level as its key, so a consumer
// sees exactly what the other sinks print.
package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// DefaultWriteTimeout bounds each WriteMessages call.
const DefaultWriteTimeout = 10 * time.Second

// Header keys set on every message.
const (
	HeaderLevel  = "debugit-level"
	HeaderSource = "debugit-source"
)

var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("kafka: no brokers")

	// ErrNoTopic is returned when no topic is configured.
	ErrNoTopic = errors.New("kafka: no topic")
)

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures a Kafka sink.
type Config struct {
	Brokers []string
	Topic   string

	// Async makes WriteMessages return before the broker acknowledges.
	Async bool

	// BatchTimeout is the writer's flush interval. Zero keeps the
	// kafka-go default.
	BatchTimeout time.Duration

	// WriteTimeout bounds each delivery. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// Sink writes events to Kafka.
type Sink struct {
	writer  MessageWriter
	timeout time.Duration
}

// Option configures a Kafka Sink.
type Option func(*Sink)

// WithWriter replaces the kafka.Writer built from Config.
func WithWriter(w MessageWriter) Option {
	return func(s *Sink) { s.writer = w }
}

// New creates a Kafka sink.
func New(cfg Config, opts ...Option) (*Sink, error) {
	s := &Sink{
		timeout: cfg.WriteTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultWriteTimeout
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.writer == nil {
		if len(cfg.Brokers) == 0 {
			return nil, ErrNoBrokers
		}
		if cfg.Topic == "" {
			return nil, ErrNoTopic
		}
		s.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			Async:        cfg.Async,
			BatchTimeout: cfg.BatchTimeout,
		}
	}
	return s, nil
}

// Message builds the Kafka message for an event.
func Message(event log.Event) kafka.Message {
	headers := []kafka.Header{{Key: HeaderLevel, Value: []byte(event.Level.String())}}
	if event.Source != "" {
		headers = append(headers, kafka.Header{Key: HeaderSource, Value: []byte(event.Source)})
	}
	return kafka.Message{
		Key:     []byte(event.Level.String()),
		Value:   log.AppendWire(nil, event),
		Headers: headers,
		Time:    event.Timestamp,
	}
}

// Deliver writes one message.
func (s *Sink) Deliver(event log.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writer.WriteMessages(ctx, Message(event))
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// Compile-time interface satisfaction check.
var _ log.Sink = (*Sink)(nil)
