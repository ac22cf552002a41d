// Package check provides the connectivity check commands.
package check

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
)

// NewCommand creates the check command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check",
		GroupID: "management",
		Short:   "Check connectivity to the directory and the ticket system",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(NewDirectoryCommand(app))
	cmd.AddCommand(NewTicketsCommand(app))
	return cmd
}
