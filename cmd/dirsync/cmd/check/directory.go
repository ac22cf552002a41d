package check

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/alerts"
	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
)

// DirectoryReport lists the logins found in the directory.
type DirectoryReport struct {
	Count   int      `json:"count" yaml:"count"`
	Skipped int      `json:"skipped" yaml:"skipped"`
	Logins  []string `json:"logins" yaml:"logins"`
}

// Value implements output.Tabular.
func (r DirectoryReport) Value() any { return r }

// Table implements output.Tabular.
func (r DirectoryReport) Table() output.Data {
	rows := make([][]string, 0, len(r.Logins))
	for _, login := range r.Logins {
		rows = append(rows, []string{login})
	}
	return output.Data{Headers: []string{"Login"}, Rows: rows}
}

// NewDirectoryCommand creates the check directory command.
func NewDirectoryCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "directory",
		Short: "List every login in the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := app.Directory()
			if err != nil {
				return err
			}
			snap, err := dir.FetchIDs(cmd.Context())
			if err != nil {
				return err
			}
			report := DirectoryReport{
				Count:   snap.Len(),
				Skipped: snap.Skipped,
				Logins:  snap.Logins(),
			}
			app.Logger().Info().Int("count", report.Count).Msg("Directory reachable")
			format := output.Format(app.OutputFormat())
			if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if format != output.FormatTable {
				return nil
			}
			alert := alerts.NewSuccess("Directory reachable").WithDetails(fmt.Sprintf("%d logins, %d skipped", report.Count, report.Skipped))
			if report.Count == 0 {
				alert = alerts.NewWarning("Directory reachable but no logins found")
			}
			return alerts.NewWriter(cmd.ErrOrStderr(), false).Write(alert)
		},
	}
}
