// Package opensearch indexes events into OpenSearch, one document per event
// in a daily index named "<prefix>-2006.01.02".
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// Defaults.
const (
	DefaultIndexPrefix    = "debugit"
	DefaultRequestTimeout = 10 * time.Second
)

// ErrNoAddresses is returned when no node address is configured.
var ErrNoAddresses = errors.New("opensearch: no addresses")

// Config configures an OpenSearch sink.
type Config struct {
	Addresses []string
	Username  string
	Password  string

	// IndexPrefix defaults to DefaultIndexPrefix.
	IndexPrefix string

	// InsecureSkipVerify disables certificate checks, for local clusters
	// with self-signed certificates.
	InsecureSkipVerify bool

	// RequestTimeout bounds each index request. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Document is the indexed form of an event.
type Document struct {
	Timestamp time.Time      `json:"@timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	DebugMode bool           `json:"debug_mode,omitempty"`
	Source    string         `json:"source,omitempty"`
	Wire      string         `json:"wire"`
}

// NewDocument builds the document for an event. Meta is taken from the
// rendered wire record so it is always JSON-encodable.
func NewDocument(event log.Event) Document {
	wire := log.Render(event)
	doc := Document{
		Timestamp: event.Timestamp.UTC(),
		Level:     event.Level.String(),
		Message:   event.Message,
		DebugMode: event.DebugMode,
		Source:    event.Source,
		Wire:      wire,
	}
	if rec, err := log.ParseWire([]byte(wire)); err == nil {
		doc.Meta = rec.Meta
	}
	return doc
}

// Sink indexes events.
type Sink struct {
	client  *opensearch.Client
	prefix  string
	timeout time.Duration
}

// New creates an OpenSearch sink.
func New(cfg Config) (*Sink, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrNoAddresses
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	s := &Sink{
		client:  client,
		prefix:  cfg.IndexPrefix,
		timeout: cfg.RequestTimeout,
	}
	if s.prefix == "" {
		s.prefix = DefaultIndexPrefix
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	return s, nil
}

// IndexName returns the daily index for t.
func (s *Sink) IndexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", s.prefix, t.UTC().Format("2006.01.02"))
}

// Deliver indexes one document.
func (s *Sink) Deliver(event log.Event) error {
	body, err := json.Marshal(NewDocument(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req := opensearchapi.IndexRequest{
		Index: s.IndexName(event.Timestamp),
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to execute index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ log.Sink = (*Sink)(nil)
