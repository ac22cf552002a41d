package mapping

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

// Preview is the draft the mapping produced for one directory entry.
type Preview struct {
	Login string         `json:"login" yaml:"login"`
	DN    string         `json:"dn" yaml:"dn"`
	Draft *tickets.Draft `json:"draft,omitempty" yaml:"draft,omitempty"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report holds one preview per directory entry, ordered by login.
type Report struct {
	Previews []Preview `json:"previews" yaml:"previews"`
	Failed   int       `json:"failed" yaml:"failed"`
}

// Value implements output.Tabular.
func (r Report) Value() any { return r }

// Table implements output.Tabular.
func (r Report) Table() output.Data {
	rows := make([][]string, 0, len(r.Previews))
	for _, p := range r.Previews {
		if p.Draft == nil {
			rows = append(rows, []string{p.Login, "", "", "", p.Error})
			continue
		}
		name := strings.TrimSpace(p.Draft.Firstname + " " + p.Draft.Lastname)
		rows = append(rows, []string{p.Login, name, p.Draft.Email, strings.Join(p.Draft.Roles, ","), p.Error})
	}
	return output.Data{Headers: []string{"Login", "Name", "Email", "Roles", "Error"}, Rows: rows}
}

// NewTestCommand creates the mapping test command.
func NewTestCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "test [login...]",
		Short: "Run the mapping over directory entries without touching the ticket system",
		Long: `Test reads every directory entry, runs the configured mapping in create mode
and prints the resulting ticket user drafts. Nothing is sent to the ticket
system and the watermark is not read or written.

Drafts start with the login only, so roles shown are the ones the mapping adds.
Pass logins to limit the output to those entries.`,
		Example: `  dirsync mapping test
  dirsync mapping test alice bob -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := app.Directory()
			if err != nil {
				return err
			}
			transform, err := app.Transform()
			if err != nil {
				return err
			}
			snap, err := dir.FetchFull(ctx, watermark.Zero())
			if err != nil {
				return err
			}

			logins := snap.Logins()
			if len(args) > 0 {
				logins = make([]string, 0, len(args))
				for _, arg := range args {
					login := directory.NormalizeLogin(arg)
					if !snap.Has(login) {
						return errors.NewNotFoundError("directory entry", arg)
					}
					logins = append(logins, login)
				}
			}

			var report Report
			for _, login := range logins {
				rec := snap.Records[login]
				preview := Preview{Login: login, DN: rec.DN}
				draft := tickets.NewDraft(login)
				if err := transform.Apply(ctx, mapping.ModeCreate, draft, rec); err != nil {
					preview.Error = err.Error()
					report.Failed++
				} else {
					preview.Draft = draft
				}
				report.Previews = append(report.Previews, preview)
			}

			app.Logger().Info().
				Int("entries", len(report.Previews)).
				Int("failed", report.Failed).
				Msg("Mapping tested")
			if err := output.NewFormatter(output.Format(app.OutputFormat())).Format(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return errors.NewValidationError("sync.mapping", report.Failed,
					strconv.Itoa(report.Failed)+" of "+strconv.Itoa(len(report.Previews))+" entries failed to map")
			}
			return nil
		},
	}
}
