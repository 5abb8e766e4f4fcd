package diag_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugit-log/debugit-go/internal/diag"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input       string
		expected    slog.Level
		expectError bool
	}{
		"error":            {input: "error", expected: slog.LevelError},
		"warn":             {input: "warn", expected: slog.LevelWarn},
		"warning":          {input: "warning", expected: slog.LevelWarn},
		"info":             {input: "info", expected: slog.LevelInfo},
		"debug":            {input: "debug", expected: slog.LevelDebug},
		"case insensitive": {input: "INFO", expected: slog.LevelInfo},
		"unknown":          {input: "trace", expectError: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			lvl, err := diag.ParseLevel(tc.input)
			if tc.expectError {
				require.ErrorIs(t, err, diag.ErrUnknownLogLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, lvl)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"json", "logfmt", "text", "JSON"} {
		_, err := diag.ParseFormat(name)
		assert.NoError(t, err, name)
	}

	_, err := diag.ParseFormat("xml")
	assert.ErrorIs(t, err, diag.ErrUnknownLogFormat)
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := diag.NewHandlerFromStrings(&buf, "warn", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("hidden")
	logger.Warn("shown", "sink", "file")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "file", rec["sink"])

	_, err = diag.NewHandlerFromStrings(&buf, "loud", "json")
	require.ErrorIs(t, err, diag.ErrInvalidArgument)
	require.ErrorIs(t, err, diag.ErrUnknownLogLevel)

	_, err = diag.NewHandlerFromStrings(&buf, "info", "yaml")
	require.ErrorIs(t, err, diag.ErrUnknownLogFormat)
}

func TestNewHandlerFormats(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		format diag.Format
		want   string
	}{
		"logfmt": {format: diag.FormatLogfmt, want: "msg=relay"},
		"text":   {format: diag.FormatText, want: "relay"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			slog.New(diag.NewHandler(&buf, slog.LevelInfo, tc.format)).Info("relay")
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestConfigFlags(t *testing.T) {
	t.Parallel()

	cfg := diag.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	require.NoError(t, cmd.Flags().Parse([]string{"--diag-level", "debug", "--diag-format", "json"}))
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
