package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/debugit-log/debugit-go/pkg/debugit"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
	"github.com/debugit-log/debugit-go/pkg/sink/console"
	"github.com/debugit-log/debugit-go/pkg/sink/file"
	"github.com/debugit-log/debugit-go/pkg/sink/kafka"
	"github.com/debugit-log/debugit-go/pkg/sink/opensearch"
)

// Settings returns the dispatcher settings.
func (c *Config) Settings() (debugit.Settings, error) {
	lvl, err := c.MinLevel()
	if err != nil {
		return debugit.Settings{}, fmt.Errorf("%w: level: %w", ErrInvalidConfig, err)
	}
	return debugit.Settings{MinLevel: lvl, DebugMode: c.Debug}, nil
}

// BuildSinks creates the configured sinks in the order console, file,
// kafka, opensearch. stdout and stderr back the console sink; nil means
// the process streams. If one sink fails, those already created are
// closed.
func (c *Config) BuildSinks(stdout, stderr io.Writer) ([]log.Sink, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	var sinks []log.Sink
	fail := func(err error) ([]log.Sink, error) {
		return nil, errors.Join(err, closeSinks(sinks))
	}

	if cc := c.Sinks.Console; cc != nil && cc.Enabled {
		var opts []console.Option
		if cc.StderrLevel != "" {
			lvl, err := log.ParseLevel(cc.StderrLevel)
			if err != nil {
				return fail(fmt.Errorf("%w: sinks.console.stderr_level: %w", ErrInvalidConfig, err))
			}
			opts = append(opts, console.WithErrorWriter(stderr, lvl))
		}
		sinks = append(sinks, console.New(stdout, opts...))
	}

	if fc := c.Sinks.File; fc != nil {
		format, err := file.ParseFormat(fc.Format)
		if err != nil {
			return fail(fmt.Errorf("%w: sinks.file.format: %w", ErrInvalidConfig, err))
		}
		s, err := file.New(fc.Path, file.WithMaxSize(fc.MaxSize), file.WithFormat(format))
		if err != nil {
			return fail(fmt.Errorf("file sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	if kc := c.Sinks.Kafka; kc != nil {
		s, err := kafka.New(kafka.Config{
			Brokers:      kc.Brokers,
			Topic:        kc.Topic,
			Async:        kc.Async,
			BatchTimeout: kc.BatchTimeout.Std(),
			WriteTimeout: kc.WriteTimeout.Std(),
		})
		if err != nil {
			return fail(fmt.Errorf("kafka sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	if oc := c.Sinks.OpenSearch; oc != nil {
		s, err := opensearch.New(opensearch.Config{
			Addresses:          oc.Addresses,
			Username:           oc.Username,
			Password:           oc.Password,
			IndexPrefix:        oc.IndexPrefix,
			InsecureSkipVerify: oc.InsecureSkipVerify,
			RequestTimeout:     oc.RequestTimeout.Std(),
		})
		if err != nil {
			return fail(fmt.Errorf("opensearch sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// Build creates the sinks and the logger. opts are applied after the
// options derived from the file, so callers can override them.
func (c *Config) Build(stdout, stderr io.Writer, opts ...debugit.Option) (*debugit.Logger, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}

	var relayCfg *relay.Config
	if c.Relay != nil {
		rc, err := c.Relay.ToRelay()
		if err != nil {
			return nil, err
		}
		relayCfg = &rc
	}

	sinks, err := c.BuildSinks(stdout, stderr)
	if err != nil {
		return nil, err
	}

	base := []debugit.Option{debugit.WithSource(c.Source)}
	if c.QueueSize > 0 {
		base = append(base, debugit.WithQueueSize(c.QueueSize))
	}

	logger, err := debugit.New(sinks, settings, relayCfg, append(base, opts...)...)
	if err != nil {
		return nil, errors.Join(err, closeSinks(sinks))
	}
	return logger, nil
}

func closeSinks(sinks []log.Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
