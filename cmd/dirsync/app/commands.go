package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/cmd/dirsync/cmd/check"
	configcmd "github.com/agentstation/dirsync/cmd/dirsync/cmd/config"
	"github.com/agentstation/dirsync/cmd/dirsync/cmd/decrypt"
	"github.com/agentstation/dirsync/cmd/dirsync/cmd/encrypt"
	mappingcmd "github.com/agentstation/dirsync/cmd/dirsync/cmd/mapping"
	"github.com/agentstation/dirsync/cmd/dirsync/cmd/pwgen"
	"github.com/agentstation/dirsync/cmd/dirsync/cmd/sync"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(sync.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(check.NewCommand(a))
	rootCmd.AddCommand(encrypt.NewCommand(a))
	rootCmd.AddCommand(decrypt.NewCommand(a))
	rootCmd.AddCommand(pwgen.NewCommand(a))
	rootCmd.AddCommand(mappingcmd.NewCommand(a))
	rootCmd.AddCommand(configcmd.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "dirsync %s\n", a.version)
			if a.config.Verbose || a.config.Debug {
				fmt.Fprintf(w, "  commit:   %s\n", a.commit)
				fmt.Fprintf(w, "  built:    %s\n", a.date)
				fmt.Fprintf(w, "  built by: %s\n", a.builtBy)
			}
		},
	}
}
