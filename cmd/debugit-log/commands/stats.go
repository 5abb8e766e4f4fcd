package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/debugit-log/debugit-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents   int
	EventsByLevel map[log.Level]int
	DebugMode     int
	WithSource    int
	MetaKeys      map[string]int
	TimeRange     struct {
		Start time.Time
		End   time.Time
	}
}

// CollectStats reads every event from path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLevel: make(map[log.Level]int),
		MetaKeys:      make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLevel[event.Level]++
		if event.DebugMode {
			stats.DebugMode++
		}
		if event.Source != "" {
			stats.WithSource++
		}
		for k := range event.Metadata {
			stats.MetaKeys[k]++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}
	}

	return stats, nil
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}

	start := stats.TimeRange.Start.UTC()
	end := stats.TimeRange.End.UTC()
	fmt.Fprintf(w, "Time range:   %s - %s (%s)\n",
		start.Format(time.RFC3339), end.Format(time.RFC3339), end.Sub(start))
	fmt.Fprintf(w, "Debug mode:   %d\n", stats.DebugMode)
	fmt.Fprintf(w, "With source:  %d\n", stats.WithSource)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "By level:")
	for _, lvl := range log.AllLevels() {
		if n := stats.EventsByLevel[lvl]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", lvl.Label(), n)
		}
	}

	if len(stats.MetaKeys) == 0 {
		return
	}

	keys := make([]string, 0, len(stats.MetaKeys))
	for k := range stats.MetaKeys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if stats.MetaKeys[keys[i]] != stats.MetaKeys[keys[j]] {
			return stats.MetaKeys[keys[i]] > stats.MetaKeys[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Metadata keys:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, stats.MetaKeys[k])
	}
}
