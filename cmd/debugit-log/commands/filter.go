package commands

import (
	"fmt"
	"io"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/sink/file"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	Level     string
	TimeStart string
	TimeEnd   string
	Contains  string
	MetaKey   string
}

// BuildFilter converts flag values into a log.Filter.
func (o FilterOptions) BuildFilter() (log.Filter, error) {
	filter := log.Filter{
		MessageContains: o.Contains,
		MetaKey:         o.MetaKey,
	}

	var err error
	if filter.MinLevel, err = ParseLevelFlag(o.Level); err != nil {
		return log.Filter{}, err
	}
	if filter.TimeStart, err = ParseTimeFlag("time-start", o.TimeStart); err != nil {
		return log.Filter{}, err
	}
	if filter.TimeEnd, err = ParseTimeFlag("time-end", o.TimeEnd); err != nil {
		return log.Filter{}, err
	}
	return filter, nil
}

// RunFilter filters the capture file and writes matching events to a new
// capture. It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.BuildFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	out, err := file.New(opts.Output, file.WithFormat(file.FormatCBOR))
	if err != nil {
		return 0, fmt.Errorf("failed to create output capture: %w", err)
	}
	defer out.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		if err := out.Deliver(event); err != nil {
			return count, fmt.Errorf("failed to write event: %w", err)
		}
		count++
	}

	return count, out.Close()
}
