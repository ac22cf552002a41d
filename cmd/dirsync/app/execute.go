package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
)

// Execute runs the dirsync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dirsync",
		Short:   "Directory to ticket system user sync",
		Version: a.version,
		Long: `dirsync mirrors directory users into the ticket system.

Each sync run anonymizes ticket users that left the directory and creates
or updates a ticket user for every directory entry changed since the last
successful run. Users holding a protected role are never modified.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./config.yaml, ./config/config.yaml or $HOME/.dirsync.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("trace", false, "enable trace logging (implies --debug)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides other verbosity flags)")

	rootCmd.SetVersionTemplate("dirsync {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if path := mustGetString(cmd, "config"); path != "" && path != a.config.ConfigFile {
		config, err := LoadConfig(path)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.config = config
		a.tickets, a.loader, a.cipher = nil, nil, nil
		a.mu.Unlock()
	}

	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "debug"),
		mustGetBool(cmd, "trace"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
	)

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return errors.NewConfigError("format", err.Error(), errors.ErrInvalidInput)
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	a.logger.Debug().
		Str("config_file", a.config.ConfigFile).
		Str("command", cmd.CommandPath()).
		Msg("Configuration loaded")
	return nil
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
