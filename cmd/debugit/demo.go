package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/internal/diag"
	"github.com/debugit-log/debugit-go/pkg/config"
	"github.com/debugit-log/debugit-go/pkg/debugit"
)

// defaultDemoConfig is used when no config file is given.
const defaultDemoConfig = `
level: debug
source: true
sinks:
  console:
    enabled: true
    stderr_level: error
`

const closeTimeout = 5 * time.Second

func newDemoCmd(diagLogger func() *slog.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build a logger from a config file and log from a prompt",
		Long: `demo builds a logger from a YAML config file (console output at debug
level when no file is given) and reads log commands from an interactive
prompt. With debug: true and a relay section the relay runs for the
lifetime of the prompt.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDemo(configPath, diagLogger())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file path")

	return cmd
}

func loadDemoConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse([]byte(defaultDemoConfig))
	}
	return config.Load(path)
}

func runDemo(configPath string, diagLogger *slog.Logger) error {
	cfg, err := loadDemoConfig(configPath)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "debugit> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	logger, err := cfg.Build(rl.Stdout(), rl.Stderr(),
		debugit.WithLogger(diagLogger),
		debugit.WithReporter(diag.NewReporter(diagLogger)),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	s := newSession(logger, rl.Stdout())
	s.printHelp()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			break
		}
		if !s.exec(line) {
			break
		}
	}

	fmt.Fprintln(rl.Stdout(), "Exiting...")

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := logger.Close(closeCtx); err != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", err)
	}
	return nil
}
