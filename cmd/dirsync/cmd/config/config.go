// Package config provides commands for inspecting the loaded configuration.
package config

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
)

// NewCommand creates the config command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: "management",
		Short:   "Inspect the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(NewShowCommand(app))
	return cmd
}

// NewShowCommand creates the config show command.
func NewShowCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Long: `Show prints the configuration after defaults, config file, .env files and
environment variables are merged. Plain secrets are masked; {AES256} values are
printed as written.

The output is YAML unless --format json is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := output.Format(app.OutputFormat())
			if format != output.FormatJSON {
				format = output.FormatYAML
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), app.Settings())
		},
	}
}
