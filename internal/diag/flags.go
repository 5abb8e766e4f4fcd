package diag

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag names registered by [Config.RegisterFlags].
const (
	FlagLevel  = "diag-level"
	FlagFormat = "diag-format"
)

// Config holds the diagnostic logger settings bound to CLI flags.
type Config struct {
	Level  string
	Format string
}

// NewConfig returns a Config with the defaults used when no flags are set.
func NewConfig() *Config {
	return &Config{Level: "warn", Format: string(FormatText)}
}

// RegisterFlags adds the diagnostic flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, FlagLevel, c.Level,
		fmt.Sprintf("diagnostic log level, one of: %s", strings.Join(LevelStrings(), ", ")))
	flags.StringVar(&c.Format, FlagFormat, c.Format,
		fmt.Sprintf("diagnostic log format, one of: %s", strings.Join(FormatStrings(), ", ")))
}

// RegisterCompletions registers shell completions for the diagnostic flags.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(FlagLevel,
		cobra.FixedCompletions(LevelStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", FlagLevel, err)
	}

	err = cmd.RegisterFlagCompletionFunc(FlagFormat,
		cobra.FixedCompletions(FormatStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", FlagFormat, err)
	}

	return nil
}

// NewLogger creates the diagnostic logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	h, err := NewHandlerFromStrings(w, c.Level, c.Format)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}
