package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shop-auth/internal/auth"
)

// genkey needs no configuration so it can produce the very first JWT_KEY.
func newGenKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Print a new random signing key suitable for JWT_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
