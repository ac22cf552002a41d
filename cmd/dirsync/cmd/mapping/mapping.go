// Package mapping provides commands for trying out the configured mapping.
package mapping

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
)

// NewCommand creates the mapping command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mapping",
		GroupID: "management",
		Short:   "Inspect the directory to ticket user mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(NewTestCommand(app))
	return cmd
}
