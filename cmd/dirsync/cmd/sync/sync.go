// Package sync provides the sync command.
package sync

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/reconciler"
)

// Flags holds the sync command flags.
type Flags struct {
	FullSync bool
	DryRun   bool
}

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Synchronize directory users into the ticket system",
		Args:    cobra.NoArgs,
		Long: `Sync runs one reconciliation of directory users into the ticket system.

The run will:
• Load every role and user from the ticket system
• Anonymize ticket users that no longer exist in the directory
• Create or update a ticket user for every directory entry changed since the last run
• Record the start of this run as the new watermark

Admin users and the superuser are never modified. If a mutation is rejected the
run stops, the watermark is left unchanged, and the command exits non-zero
after the configured error exit delay.`,
		Example: `  dirsync sync                    # Incremental sync since the last run
  dirsync sync --full-sync        # Re-examine every directory entry
  dirsync sync --dry-run --debug  # Show what would change`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app, cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.FullSync, "full-sync", false, "ignore the stored watermark")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "log mutations instead of sending them; do not advance the watermark")

	return cmd
}

// Run executes one sync and prints its summary.
func Run(ctx context.Context, app application.Application, cmd *cobra.Command, flags *Flags) error {
	logger := app.Logger()
	logger.Info().
		Bool("dry_run", flags.DryRun).
		Bool("full_sync", flags.FullSync).
		Msg("Sync requested")

	engine, err := app.Engine(
		reconciler.WithFullSync(flags.FullSync),
		reconciler.WithDryRun(flags.DryRun),
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()
	result, err := engine.Run(runCtx)
	// Counters are only meaningful once the run reached the mutation phases.
	if result != nil && (err == nil || errors.IsMutationFailed(err)) {
		if ferr := output.NewFormatter(output.Format(app.OutputFormat())).Format(cmd.OutOrStdout(), Summary{result}); ferr != nil {
			logger.Warn().Err(ferr).Msg("Failed to print summary")
		}
	}
	if err != nil && errors.IsMutationFailed(err) {
		delay := app.ErrorExitDelay()
		logger.Error().Err(err).Dur("delay", delay).Msg("Sync failed, exiting after delay")
		wait(ctx, delay)
	}
	return err
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
