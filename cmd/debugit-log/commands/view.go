// Package commands implements the debugit-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// ViewOptions specifies what the view command prints.
type ViewOptions struct {
	Filter log.Filter

	// Wire prints the wire line instead of the human-readable form.
	Wire bool
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	label := event.Level.Label()
	if event.DebugMode {
		label = "DEBUG*"
	}

	fmt.Fprintf(w, "%s %-6s %s", ts, label, event.Message)
	if event.Source != "" {
		fmt.Fprintf(w, "  %s", event.Source)
	}
	fmt.Fprintln(w)

	if event.HasMetadata() {
		formatMetadata(w, event.Metadata)
	}
}

// formatMetadata writes one indented "key: value" line per key, sorted.
func formatMetadata(w io.Writer, meta map[string]any) {
	if len(meta) == 0 {
		fmt.Fprintln(w, "  (empty metadata)")
		return
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, formatValue(meta[k]))
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ParseLevelFlag parses a --level flag value (case-insensitive).
func ParseLevelFlag(s string) (*log.Level, error) {
	if s == "" {
		return nil, nil
	}
	l, err := log.ParseLevel(s)
	if err != nil {
		return nil, fmt.Errorf("invalid level: %s (must be one of %s)", s, strings.Join(log.LevelStrings(), ", "))
	}
	return &l, nil
}

// ParseTimeFlag parses an RFC 3339 time flag value.
func ParseTimeFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return &t, nil
}

// RunView executes the view command.
func RunView(path string, opts ViewOptions, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, opts.Filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if opts.Wire {
			fmt.Fprintln(output, log.Render(event))
			continue
		}
		formatEvent(output, event)
	}

	return nil
}
