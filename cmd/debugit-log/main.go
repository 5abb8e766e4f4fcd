// Command debugit-log views and analyzes DebugIt capture files.
//
// Capture files are CBOR event streams written by the file sink with
// format "cbor".
//
// Usage:
//
//	debugit-log <command> [flags] <file.dlog>
//
// Examples:
//
//	# View all events
//	debugit-log view app.dlog
//
//	# View warnings and errors as wire lines
//	debugit-log view --level warn --wire app.dlog
//
//	# Export to CSV
//	debugit-log export --format csv -o app.csv app.dlog
//
//	# Keep events carrying a request id
//	debugit-log filter --meta-key request_id -o requests.dlog app.dlog
//
//	# Show statistics
//	debugit-log stats app.dlog
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/cmd/debugit-log/commands"
	"github.com/debugit-log/debugit-go/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "debugit-log",
		Short:         "View and analyze DebugIt capture files",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newViewCmd(),
		newExportCmd(),
		newFilterCmd(),
		newStatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// filterFlags are shared by view and filter.
type filterFlags struct {
	level     string
	timeStart string
	timeEnd   string
	contains  string
	metaKey   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.level, "level", "",
		fmt.Sprintf("minimum level, one of: %s", strings.Join(log.LevelStrings(), ", ")))
	flags.StringVar(&f.timeStart, "time-start", "", "keep events at or after this time (RFC3339)")
	flags.StringVar(&f.timeEnd, "time-end", "", "keep events before this time (RFC3339)")
	flags.StringVar(&f.contains, "contains", "", "keep events whose message contains this text")
	flags.StringVar(&f.metaKey, "meta-key", "", "keep events whose metadata has this key")

	_ = cmd.RegisterFlagCompletionFunc("level",
		cobra.FixedCompletions(log.LevelStrings(), cobra.ShellCompDirectiveNoFileComp))
}

func (f *filterFlags) options(output string) commands.FilterOptions {
	return commands.FilterOptions{
		Output:    output,
		Level:     f.level,
		TimeStart: f.timeStart,
		TimeEnd:   f.timeEnd,
		Contains:  f.contains,
		MetaKey:   f.metaKey,
	}
}

func newViewCmd() *cobra.Command {
	var (
		ff   filterFlags
		wire bool
	)

	cmd := &cobra.Command{
		Use:   "view [flags] <file.dlog>",
		Short: "View capture file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ff.options("").BuildFilter()
			if err != nil {
				return err
			}
			opts := commands.ViewOptions{Filter: filter, Wire: wire}
			return commands.RunView(args[0], opts, cmd.OutOrStdout())
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&wire, "wire", false, "print wire lines instead of the readable form")

	return cmd
}

func newExportCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export [flags] <file.dlog>",
		Short: "Export capture file to JSONL, wire lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return commands.RunExport(args[0], format, output)
		},
	}

	formats := []string{commands.FormatJSONL, commands.FormatWire, commands.FormatCSV}
	cmd.Flags().StringVar(&format, "format", commands.FormatJSONL,
		fmt.Sprintf("output format, one of: %s", strings.Join(formats, ", ")))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	_ = cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func newFilterCmd() *cobra.Command {
	var (
		ff     filterFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "filter [flags] <file.dlog>",
		Short: "Filter capture file and write matching events to a new capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := commands.RunFilter(args[0], ff.options(output))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d events to %s\n", n, output)
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output capture file")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.dlog>",
		Short: "Show statistics about the capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
