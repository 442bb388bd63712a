package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/spf13/cobra"
)

func getHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Prints a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Prints a bcrypt hash of the password. Without an argument the password is read from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
