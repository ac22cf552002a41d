// Package alerts prints short status lines for check commands.
package alerts

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Alert represents a status notification.
type Alert struct {
	Level   Level
	Message string
	Details []string
	Err     error
}

// New creates a new alert with the given level and message.
func New(level Level, message string) *Alert {
	return &Alert{Level: level, Message: message}
}

// NewError creates a new error alert.
func NewError(message string) *Alert {
	return New(LevelError, message)
}

// NewWarning creates a new warning alert.
func NewWarning(message string) *Alert {
	return New(LevelWarning, message)
}

// NewSuccess creates a new success alert.
func NewSuccess(message string) *Alert {
	return New(LevelSuccess, message)
}

// WithError adds an underlying error to the alert.
func (a *Alert) WithError(err error) *Alert {
	a.Err = err
	return a
}

// WithDetails adds additional context details to the alert.
func (a *Alert) WithDetails(details ...string) *Alert {
	a.Details = append(a.Details, details...)
	return a
}

// String returns the icon, message and error on one line.
func (a *Alert) String() string {
	message := a.Level.Icon() + " " + a.Message
	if a.Err != nil {
		message += fmt.Sprintf(": %v", a.Err)
	}
	return message
}

// Writer prints alerts to w, colored when w is a terminal.
type Writer struct {
	w        io.Writer
	useColor bool
}

// NewWriter creates a Writer for w. noColor disables color even on a terminal.
func NewWriter(w io.Writer, noColor bool) *Writer {
	return &Writer{w: w, useColor: !noColor && isTerminal(w)}
}

// Write prints alert and its indented details.
func (w *Writer) Write(alert *Alert) error {
	line := alert.String()
	if w.useColor {
		line = alert.Level.Color() + line + resetColor
	}
	if _, err := fmt.Fprintln(w.w, line); err != nil {
		return err
	}
	for _, d := range alert.Details {
		if _, err := fmt.Fprintf(w.w, "   %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
