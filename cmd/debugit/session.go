package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/debugit-log/debugit-go/pkg/debugit"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

// session executes prompt commands against a logger.
type session struct {
	logger *debugit.Logger
	out    io.Writer
}

func newSession(logger *debugit.Logger, out io.Writer) *session {
	return &session{logger: logger, out: out}
}

// exec runs one input line. It returns false when the prompt should exit.
func (s *session) exec(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "debug", "info", "warn", "error":
		lvl, _ := log.ParseLevel(cmd)
		msg, meta := parseLogArgs(args)
		if msg == "" {
			fmt.Fprintf(s.out, "Usage: %s <message> [key=value ...]\n", cmd)
			return true
		}
		s.logger.Log(lvl, msg, meta)

	case "status", "s":
		s.printStatus()

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, `
DebugIt Commands:
  Logging:
    debug <message> [key=value ...]
    info  <message> [key=value ...]
    warn  <message> [key=value ...]
    error <message> [key=value ...]

  General:
    status             - Show logger and relay status
    help               - Show this help
    quit               - Exit

  Metadata values are typed: integers, floats, true/false and null are
  decoded, anything else is kept as a string.`)
}

func (s *session) printStatus() {
	settings := s.logger.Settings()
	fmt.Fprintf(s.out, "Min level:  %s\n", settings.MinLevel)
	fmt.Fprintf(s.out, "Debug mode: %t\n", settings.DebugMode)
	fmt.Fprintf(s.out, "Dropped:    %d\n", s.logger.Dropped())

	switch t := s.logger.Relay().(type) {
	case *relay.Server:
		fmt.Fprintf(s.out, "Relay:      server %s (%d viewers)\n", t.URL(), t.ViewerCount())
	case *relay.Client:
		fmt.Fprintf(s.out, "Relay:      client %s (%s)\n", t.Target(), t.State())
		if err := t.LastError(); err != nil {
			fmt.Fprintf(s.out, "Last error: %v (%d failed attempts)\n", err, t.Failures())
		}
	default:
		fmt.Fprintln(s.out, "Relay:      off")
	}
}

// parseLogArgs splits prompt arguments into the message and metadata.
// Arguments of the form key=value become metadata; the rest are joined
// into the message. Without key=value arguments the metadata is nil.
func parseLogArgs(args []string) (string, debugit.Meta) {
	var (
		words []string
		meta  debugit.Meta
	)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			words = append(words, arg)
			continue
		}
		if meta == nil {
			meta = debugit.Meta{}
		}
		meta[key] = parseValue(value)
	}
	return strings.Join(words, " "), meta
}

func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}
