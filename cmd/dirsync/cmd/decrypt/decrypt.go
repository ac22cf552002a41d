// Package decrypt provides the decrypt command.
package decrypt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/errors"
)

// NewCommand creates the decrypt command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "decrypt <value>",
		GroupID: "management",
		Short:   "Decrypt an {AES256} value from the configuration file",
		Long: `Decrypt prints the plain text of an {AES256} value using the secrets key file.
Use it to verify that a configured secret matches the current key.`,
		Example: `  dirsync decrypt '{AES256}q0bXy...'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !secrets.IsEncrypted(args[0]) {
				return errors.NewValidationError("value", nil, "value does not start with "+secrets.Prefix)
			}
			cipher, err := app.Cipher(cmd.Context())
			if err != nil {
				return err
			}
			plain, err := cipher.Decrypt(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), plain)
			return err
		},
	}
}
