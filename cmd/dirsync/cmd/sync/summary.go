package sync

import (
	"strconv"

	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/pkg/reconciler"
)

// Summary renders a run result.
type Summary struct {
	*reconciler.Result
}

type summaryValue struct {
	Job       string `json:"job" yaml:"job"`
	Created   int    `json:"created" yaml:"created"`
	Updated   int    `json:"updated" yaml:"updated"`
	Deleted   int    `json:"deleted" yaml:"deleted"`
	Ignored   int    `json:"ignored" yaml:"ignored"`
	Skipped   int    `json:"skipped" yaml:"skipped"`
	DryRun    bool   `json:"dry_run" yaml:"dry_run"`
	FullSync  bool   `json:"full_sync" yaml:"full_sync"`
	Since     string `json:"since,omitempty" yaml:"since,omitempty"`
	Watermark string `json:"watermark,omitempty" yaml:"watermark,omitempty"`
	Duration  string `json:"duration" yaml:"duration"`
}

// Value implements output.Tabular.
func (s Summary) Value() any {
	v := summaryValue{
		Job:      s.Job,
		Created:  s.Created,
		Updated:  s.Updated,
		Deleted:  s.Deleted,
		Ignored:  s.Ignored,
		Skipped:  s.Skipped,
		DryRun:   s.DryRun,
		FullSync: s.FullSync,
		Since:    s.Result.Watermark.String(),
		Duration: s.Duration.String(),
	}
	if s.WatermarkWritten {
		v.Watermark = s.NextWatermark.String()
	}
	return v
}

// Table implements output.Tabular.
func (s Summary) Table() output.Data {
	return output.Data{
		Headers: []string{"Updated", "Created", "Deleted", "Ignored", "Skipped"},
		Rows: [][]string{{
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Created),
			strconv.Itoa(s.Deleted),
			strconv.Itoa(s.Ignored),
			strconv.Itoa(s.Skipped),
		}},
		ColumnAlignment: []tw.Align{tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight},
	}
}
