package check

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/alerts"
	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/pkg/tickets"
)

// TicketsReport summarizes the ticket system inventory.
type TicketsReport struct {
	Login string `json:"login" yaml:"login"`
	Roles int    `json:"roles" yaml:"roles"`
	Users int    `json:"users" yaml:"users"`
}

// Value implements output.Tabular.
func (r TicketsReport) Value() any { return r }

// Table implements output.Tabular.
func (r TicketsReport) Table() output.Data {
	return output.Data{
		Headers: []string{"Authenticated As", "Roles", "Users"},
		Rows:    [][]string{{r.Login, strconv.Itoa(r.Roles), strconv.Itoa(r.Users)}},
	}
}

// NewTicketsCommand creates the check tickets command.
func NewTicketsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "Verify the ticket system credentials and count roles and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := app.Tickets()
			if err != nil {
				return err
			}
			me, err := client.Me(ctx)
			if err != nil {
				return err
			}
			inv, err := tickets.LoadInventory(ctx, client, app.PageSize())
			if err != nil {
				return err
			}
			report := TicketsReport{Login: me.Login, Roles: len(inv.Roles), Users: len(inv.Users)}
			app.Logger().Info().Str("login", me.Login).Msg("Ticket system reachable")
			format := output.Format(app.OutputFormat())
			if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if format != output.FormatTable {
				return nil
			}
			return alerts.NewWriter(cmd.ErrOrStderr(), false).
				Write(alerts.NewSuccess("Ticket system reachable as " + me.Login))
		},
	}
}
