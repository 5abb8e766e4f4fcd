package main

import (
	"fmt"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/debugit-log/debugit-go/pkg/relay"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for the relay password_hash setting",
		Long: `hash-password prints a bcrypt hash of the password. Without an argument
the password is read from the terminal without echo.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				p, err := promptPassword()
				if err != nil {
					return err
				}
				password = p
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := relay.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func promptPassword() (string, error) {
	rl, err := readline.NewEx(&readline.Config{})
	if err != nil {
		return "", fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	b, err := rl.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
