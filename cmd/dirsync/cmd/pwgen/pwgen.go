// Package pwgen provides the pwgen command.
package pwgen

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/internal/secrets"
)

// DefaultLength is the password length when --length is not given.
const DefaultLength = 16

// Password is a generated password and its {AES256} form.
type Password struct {
	Password  string `json:"password" yaml:"password"`
	Encrypted string `json:"encrypted" yaml:"encrypted"`
}

// Value implements output.Tabular.
func (p Password) Value() any { return p }

// Table implements output.Tabular.
func (p Password) Table() output.Data {
	return output.Data{
		Headers: []string{"Password", "Encrypted"},
		Rows:    [][]string{{p.Password, p.Encrypted}},
	}
}

// NewCommand creates the pwgen command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:     "pwgen",
		GroupID: "management",
		Short:   "Generate a random password and its encrypted form",
		Long: `Pwgen prints a random password together with its {AES256} form, ready to be
pasted into the configuration file as ldap.bind.password or ticket.token.`,
		Example: `  dirsync pwgen
  dirsync pwgen --length 32 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plain, err := secrets.GeneratePassword(length)
			if err != nil {
				return err
			}
			cipher, err := app.Cipher(cmd.Context())
			if err != nil {
				return err
			}
			result := Password{Password: plain, Encrypted: cipher.Encrypt(plain)}
			return output.NewFormatter(output.Format(app.OutputFormat())).Format(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVarP(&length, "length", "n", DefaultLength, "number of characters")

	return cmd
}
