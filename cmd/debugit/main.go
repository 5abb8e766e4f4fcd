// Command debugit drives a DebugIt logger from the command line.
//
// Usage:
//
//	debugit <command> [flags]
//
// Commands:
//
//	demo           Build a logger from a config file and log from a prompt
//	view           Print the records streamed by a relay server
//	discover       List relay servers advertised on the local network
//	hash-password  Print a bcrypt hash for the relay password_hash setting
//
// Examples:
//
//	# Log through the sinks in debugit.yaml
//	debugit demo --config debugit.yaml
//
//	# Follow a password-protected relay
//	debugit view --url ws://127.0.0.1:3001/ --password s3cret
//
//	# Look for relays for five seconds
//	debugit discover --timeout 5s
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/internal/diag"
)

func main() {
	diagCfg := diag.NewConfig()
	var diagLogger *slog.Logger

	rootCmd := &cobra.Command{
		Use:           "debugit",
		Short:         "Structured logging with live relay viewers",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			diagLogger, err = diagCfg.NewLogger(cmd.ErrOrStderr())
			return err
		},
	}

	diagCfg.RegisterFlags(rootCmd.PersistentFlags())
	if err := diagCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	logger := func() *slog.Logger { return diagLogger }
	rootCmd.AddCommand(
		newDemoCmd(logger),
		newViewCmd(),
		newDiscoverCmd(logger),
		newHashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
