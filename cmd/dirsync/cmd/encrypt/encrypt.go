// Package encrypt provides the encrypt command.
package encrypt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
)

// NewCommand creates the encrypt command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "encrypt <text>",
		GroupID: "management",
		Short:   "Encrypt a value for use in the configuration file",
		Long: `Encrypt prints the {AES256} form of text using the secrets key file.
The key file is created on first use.

Encrypted values are accepted for ldap.bind.password and ticket.token.`,
		Example: `  dirsync encrypt 's3cret'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher, err := app.Cipher(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cipher.Encrypt(args[0]))
			return err
		},
	}
}
