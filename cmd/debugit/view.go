package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

func newViewCmd() *cobra.Command {
	var (
		cfg      relay.WatchConfig
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the records streamed by a relay server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if insecure {
				cfg.TLS = &relay.TLSConfig{InsecureSkipVerify: true}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return relay.Watch(ctx, cfg, func(rec log.WireRecord) {
				printRecord(out, rec)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.URL, "url", "ws://127.0.0.1:3001/", "relay server URL")
	flags.StringVar(&cfg.Password, "password", "", "relay password")
	flags.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")

	return cmd
}

// printRecord writes the header and message on one line followed by one
// indented line per metadata key.
func printRecord(w io.Writer, rec log.WireRecord) {
	fmt.Fprintf(w, "%s %s\n", rec.Header, rec.Message)
	if rec.Meta == nil {
		return
	}
	if len(rec.Meta) == 0 {
		fmt.Fprintln(w, "  (empty metadata)")
		return
	}

	keys := make([]string, 0, len(rec.Meta))
	for k := range rec.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := rec.Meta[k]
		if str, ok := v.(string); ok {
			fmt.Fprintf(w, "  %s: %s\n", k, str)
			continue
		}
		b, _ := json.Marshal(v)
		fmt.Fprintf(w, "  %s: %s\n", k, b)
	}
}
