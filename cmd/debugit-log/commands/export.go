package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatWire  = "wire"
	FormatCSV   = "csv"
)

// exportRecord is the JSONL form of an event.
type exportRecord struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	DebugMode bool           `json:"debug_mode,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// RunExport exports the capture file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return Export(reader, format, w)
}

// Export writes every event from reader to w in format.
func Export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case FormatJSONL:
		return exportJSONL(reader, w)
	case FormatWire:
		return exportWire(reader, w)
	case FormatCSV:
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, wire, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		rec := exportRecord{
			Timestamp: log.FormatTimestamp(event.Timestamp),
			Level:     event.Level.String(),
			Message:   event.Message,
			Meta:      event.Metadata,
			DebugMode: event.DebugMode,
			Source:    event.Source,
		}
		if err := encoder.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportWire(reader *log.Reader, w io.Writer) error {
	var buf []byte
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		buf = log.AppendWire(buf[:0], event)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "level", "message", "meta", "debug_mode", "source"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		meta := ""
		if event.HasMetadata() {
			b, err := json.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}
			meta = string(b)
		}

		row := []string{
			log.FormatTimestamp(event.Timestamp),
			event.Level.String(),
			event.Message,
			meta,
			fmt.Sprintf("%t", event.DebugMode),
			event.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
