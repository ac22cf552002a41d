package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/pkg/logging"
)

// NewLogger creates a configured logger based on the application configuration.
// Debug and trace loggers record the caller. Log level precedence (highest to lowest):
//  1. --log-level flag (explicit always wins)
//  2. --trace flag
//  3. --debug or -v/--verbose flag
//  4. -q/--quiet flag (shortcut for warn)
//  5. LOG_LEVEL environment variable or log.level
//  6. Default (info)
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)

	return logging.New(logging.Config{
		Level:   level,
		Format:  config.LogFormat,
		Output:  config.LogOutput,
		NoColor: config.NoColor,
	})
}

// determineLogLevel determines the log level using the precedence rules above.
func determineLogLevel(config *Config) string {
	if config.LogLevel != "" {
		return checkedLevel(config.LogLevel)
	}

	switch {
	case config.Trace:
		return "trace"
	case config.Debug, config.Verbose:
		if config.Quiet {
			fmt.Fprintf(os.Stderr, "Warning: both --debug and --quiet specified, using --debug\n")
		}
		return "debug"
	case config.Quiet:
		return "warn"
	}

	if config.BaseLogLevel != "" {
		return checkedLevel(config.BaseLogLevel)
	}
	return "info"
}

func checkedLevel(level string) string {
	validated := validateLogLevel(level)
	if validated != strings.ToLower(level) {
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", level, validated)
	}
	return validated
}

// validateLogLevel returns level if valid, otherwise "info".
func validateLogLevel(level string) string {
	switch l := strings.ToLower(level); l {
	case "trace", "debug", "info", "warn", "error":
		return l
	}
	return "info"
}
