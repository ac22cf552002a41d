// Package logging configures zerolog for dirsync and carries the logger of a
// sync run through context.Context.
//
// Scheduled runs write JSON lines; an interactive terminal gets the console
// writer. Lines of a sync run carry the job name and run id, and lines about
// one user add the login and ticket user id:
//
//	ctx = logging.WithJob(ctx, "ticket-users")
//	ctx = logging.WithLogin(ctx, "alice")
//	logging.FromContext(ctx).Debug().Msg("Updating user")
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/dirsync/pkg/constants"
)

// Config selects the level, encoding and destination of log output.
type Config struct {
	// Level is trace, debug, info, warn or error. Empty or unknown means info.
	Level string
	// Format is json, console or auto. Auto picks console on a terminal.
	Format string
	// Output is stderr, stdout, discard or a file path opened for append.
	Output  string
	NoColor bool
}

// defaultLogger is used when a context carries no logger. It honors LOG_LEVEL
// and LOG_FORMAT so that messages logged before the configuration is read are
// not lost.
var defaultLogger = New(Config{
	Level:   os.Getenv(constants.EnvLogLevel),
	Format:  os.Getenv(constants.EnvLogFormat),
	NoColor: os.Getenv("NO_COLOR") != "",
})

// New builds a logger from cfg and makes its level the global level.
// Debug and trace loggers record the caller.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	out, openErr := openOutput(cfg.Output)
	logger := zerolog.New(encoder(out, cfg)).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	if openErr != nil {
		logger.Warn().Err(openErr).Str("path", cfg.Output).Msg("Cannot open log output, logging to stderr")
	}
	return logger
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func openOutput(dest string) (io.Writer, error) {
	switch strings.ToLower(dest) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard", "none":
		return io.Discard, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr, err
	}
	return f, nil
}

func encoder(out io.Writer, cfg Config) io.Writer {
	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok && f == os.Stderr && isatty.IsTerminal(f.Fd()) {
			format = "console"
		}
	}
	if format != "console" && format != "pretty" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: constants.TimeFormatLog, NoColor: cfg.NoColor}
}

// Default returns the logger used when a context carries none.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default logger and zerolog's global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}
