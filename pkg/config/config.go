package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
	"github.com/debugit-log/debugit-go/pkg/sink/file"
)

// Config is the file form of a logger setup.
type Config struct {
	// Level is the minimum level name. Empty means info.
	Level string `yaml:"level"`

	// Debug enables debug rendering and the relay.
	Debug bool `yaml:"debug"`

	// Source captures call sites.
	Source bool `yaml:"source"`

	// QueueSize is the per-sink queue capacity. Zero keeps the default.
	QueueSize int `yaml:"queue_size"`

	Sinks Sinks        `yaml:"sinks"`
	Relay *RelayConfig `yaml:"relay"`
}

// Sinks lists the built-in sinks. A nil entry is not created.
type Sinks struct {
	Console    *ConsoleConfig    `yaml:"console"`
	File       *FileConfig       `yaml:"file"`
	Kafka      *KafkaConfig      `yaml:"kafka"`
	OpenSearch *OpenSearchConfig `yaml:"opensearch"`
}

// ConsoleConfig configures the console sink.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`

	// StderrLevel sends events at or above this level to stderr.
	StderrLevel string `yaml:"stderr_level"`
}

// FileConfig configures the file sink.
type FileConfig struct {
	Path    string `yaml:"path"`
	MaxSize int64  `yaml:"max_size"`
	Format  string `yaml:"format"`
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	Async        bool     `yaml:"async"`
	BatchTimeout Duration `yaml:"batch_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// OpenSearchConfig configures the OpenSearch sink.
type OpenSearchConfig struct {
	Addresses          []string `yaml:"addresses"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	IndexPrefix        string   `yaml:"index_prefix"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	RequestTimeout     Duration `yaml:"request_timeout"`
}

// RelayConfig is the file form of relay.Config.
type RelayConfig struct {
	Mode              string            `yaml:"mode"`
	Host              string            `yaml:"host"`
	Port              int               `yaml:"port"`
	Path              string            `yaml:"path"`
	Password          string            `yaml:"password"`
	PasswordHash      string            `yaml:"password_hash"`
	URL               string            `yaml:"url"`
	Headers           map[string]string `yaml:"headers"`
	ReconnectInterval Duration          `yaml:"reconnect_interval"`
	HandshakeTimeout  Duration          `yaml:"handshake_timeout"`
	WriteTimeout      Duration          `yaml:"write_timeout"`
	PingInterval      Duration          `yaml:"ping_interval"`
	SendBuffer        int               `yaml:"send_buffer"`
	Advertise         bool              `yaml:"advertise"`
	InstanceName      string            `yaml:"instance_name"`
	MetricsPath       string            `yaml:"metrics_path"`
	TLS               *TLSConfig        `yaml:"tls"`
}

// TLSConfig is the file form of relay.TLSConfig.
type TLSConfig struct {
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		le := &LoadError{Message: "failed to parse YAML", Cause: err}
		var te *yaml.TypeError
		if !errors.As(err, &te) {
			le.Line = yamlErrorLine(err)
		}
		return nil, le
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	c, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: "invalid configuration", Cause: err}
	}
	return c, nil
}

// yamlErrorLine extracts N from yaml.v3's "yaml: line N: ..." messages.
func yamlErrorLine(err error) int {
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr != nil {
		return 0
	}
	return line
}

// MinLevel returns the parsed minimum level.
func (c *Config) MinLevel() (log.Level, error) {
	if strings.TrimSpace(c.Level) == "" {
		return log.LevelInfo, nil
	}
	return log.ParseLevel(c.Level)
}

// Validate checks values that can be checked without touching the network
// or file system.
func (c *Config) Validate() error {
	if _, err := c.MinLevel(); err != nil {
		return fmt.Errorf("%w: level: %w", ErrInvalidConfig, err)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue_size must not be negative", ErrInvalidConfig)
	}

	if cc := c.Sinks.Console; cc != nil && cc.StderrLevel != "" {
		if _, err := log.ParseLevel(cc.StderrLevel); err != nil {
			return fmt.Errorf("%w: sinks.console.stderr_level: %w", ErrInvalidConfig, err)
		}
	}
	if fc := c.Sinks.File; fc != nil {
		if strings.TrimSpace(fc.Path) == "" {
			return fmt.Errorf("%w: sinks.file.path is required", ErrInvalidConfig)
		}
		if fc.MaxSize < 0 {
			return fmt.Errorf("%w: sinks.file.max_size must not be negative", ErrInvalidConfig)
		}
		if _, err := file.ParseFormat(fc.Format); err != nil {
			return fmt.Errorf("%w: sinks.file.format: %w", ErrInvalidConfig, err)
		}
	}
	if kc := c.Sinks.Kafka; kc != nil {
		if len(kc.Brokers) == 0 || kc.Topic == "" {
			return fmt.Errorf("%w: sinks.kafka needs brokers and topic", ErrInvalidConfig)
		}
	}
	if oc := c.Sinks.OpenSearch; oc != nil && len(oc.Addresses) == 0 {
		return fmt.Errorf("%w: sinks.opensearch.addresses is required", ErrInvalidConfig)
	}

	if c.Relay != nil {
		rc, err := c.Relay.ToRelay()
		if err != nil {
			return err
		}
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("%w: relay: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ToRelay converts to relay.Config.
func (r *RelayConfig) ToRelay() (relay.Config, error) {
	mode, err := relay.ParseMode(r.Mode)
	if err != nil {
		return relay.Config{}, fmt.Errorf("%w: relay.mode: %w", ErrInvalidConfig, err)
	}

	rc := relay.Config{
		Mode:              mode,
		Host:              r.Host,
		Port:              r.Port,
		Path:              r.Path,
		Password:          r.Password,
		PasswordHash:      r.PasswordHash,
		URL:               r.URL,
		ReconnectInterval: r.ReconnectInterval.Std(),
		HandshakeTimeout:  r.HandshakeTimeout.Std(),
		WriteTimeout:      r.WriteTimeout.Std(),
		PingInterval:      r.PingInterval.Std(),
		SendBuffer:        r.SendBuffer,
		Advertise:         r.Advertise,
		InstanceName:      r.InstanceName,
		MetricsPath:       r.MetricsPath,
	}
	if len(r.Headers) > 0 {
		rc.Headers = maps.Clone(r.Headers)
	}
	if r.TLS != nil {
		rc.TLS = &relay.TLSConfig{
			CertFile:           r.TLS.CertFile,
			KeyFile:            r.TLS.KeyFile,
			CAFile:             r.TLS.CAFile,
			ServerName:         r.TLS.ServerName,
			InsecureSkipVerify: r.TLS.InsecureSkipVerify,
		}
	}
	return rc, nil
}
