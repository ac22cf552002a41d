package reconciler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/pkg/watermark"
)

// Result represents the outcome of one reconciliation run.
// On an aborted run it holds the counters reached before the failure.
type Result struct {
	// Job is the sync job name.
	Job string

	// Counters
	Created int
	Updated int
	Deleted int
	Ignored int
	// Skipped counts directory entries dropped as data errors.
	Skipped int

	// Run mode
	DryRun   bool
	FullSync bool

	// Watermark is the effective watermark the incremental query used.
	Watermark watermark.Watermark
	// NextWatermark is the value written at the end of the run, or would have
	// been on a dry run.
	NextWatermark watermark.Watermark
	// WatermarkWritten reports whether NextWatermark was persisted.
	WatermarkWritten bool

	StartedAt time.Time
	Duration  time.Duration
}

// Mutations returns the number of creates, updates and deletes.
func (r *Result) Mutations() int {
	return r.Created + r.Updated + r.Deleted
}

// Summary returns the one-line run summary.
func (r *Result) Summary() string {
	s := fmt.Sprintf("updated=%d created=%d deleted=%d ignored=%d",
		r.Updated, r.Created, r.Deleted, r.Ignored)
	if r.Skipped > 0 {
		s += fmt.Sprintf(" skipped=%d", r.Skipped)
	}
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

// MarshalZerologObject adds the counters to a log event.
func (r *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Int("updated", r.Updated).
		Int("created", r.Created).
		Int("deleted", r.Deleted).
		Int("ignored", r.Ignored).
		Int("skipped", r.Skipped).
		Bool("dry_run", r.DryRun).
		Bool("full_sync", r.FullSync).
		Dur("duration", r.Duration)
}
