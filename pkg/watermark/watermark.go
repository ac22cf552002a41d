// Package watermark persists the boundary between directory changes that have
// already been synchronized and those that have not.
//
// A watermark is a single instant rendered in directory generalized time
// (for example 20240102030405.123Z). The zero watermark is the Unix epoch and
// means "beginning of time", so an incremental query built from it returns
// every entry.
package watermark

import (
	"strings"
	"time"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
)

// parseLayout accepts both "Z" and numeric offsets, with or without fractional seconds.
const parseLayout = "20060102150405Z0700"

// Watermark is the timestamp of the last successful run.
type Watermark struct {
	t time.Time
}

// Zero returns the watermark meaning "nothing synchronized yet".
func Zero() Watermark {
	return Watermark{t: time.Unix(0, 0).UTC()}
}

// At returns a watermark for t, truncated to millisecond precision.
func At(t time.Time) Watermark {
	return Watermark{t: t.UTC().Truncate(time.Millisecond)}
}

// Parse reads a generalized-time value.
func Parse(s string) (Watermark, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Watermark{}, errors.NewValidationError("watermark", s, "empty value")
	}
	t, err := time.Parse(parseLayout, s)
	if err != nil {
		return Watermark{}, errors.NewParseError("generalized-time", "", err.Error(), err)
	}
	return At(t), nil
}

// Time returns the instant in UTC.
func (w Watermark) Time() time.Time {
	if w.t.IsZero() {
		return Zero().t
	}
	return w.t
}

// IsZero reports whether w is the zero watermark.
func (w Watermark) IsZero() bool {
	return w.t.IsZero() || w.t.Equal(Zero().t)
}

// Equal reports whether both watermarks denote the same instant.
func (w Watermark) Equal(o Watermark) bool {
	return w.Time().Equal(o.Time())
}

// String formats the watermark in generalized time.
func (w Watermark) String() string {
	return w.Time().Format(constants.TimeFormatGeneralized)
}
