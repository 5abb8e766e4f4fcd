package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/pkg/discovery"
)

func newDiscoverCmd(diagLogger func() *slog.Logger) *cobra.Command {
	var (
		timeout time.Duration
		iface   string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List relay servers advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			diagLogger().Debug("browsing for relays",
				slog.String("service", discovery.ServiceType),
				slog.Duration("timeout", timeout))

			browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: iface})
			services, err := browser.Find(ctx)
			if err != nil {
				return fmt.Errorf("browse: %w", err)
			}

			printServices(cmd.OutOrStdout(), services)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultBrowseTimeout, "how long to browse")
	cmd.Flags().StringVar(&iface, "interface", "", "network interface to browse on (default: all)")

	return cmd
}

func printServices(w io.Writer, services []*discovery.Service) {
	if len(services) == 0 {
		fmt.Fprintln(w, "No relays found")
		return
	}

	for _, svc := range services {
		auth := "open"
		if svc.Auth {
			auth = "password"
		}
		fmt.Fprintf(w, "%s\n  url:     %s\n  version: %s\n  auth:    %s\n",
			svc.Instance, svc.URL(), svc.Version, auth)
	}
}
