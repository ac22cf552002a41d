// Package constants provides shared constants used throughout the dirsync codebase.
// This includes timeouts, page sizes, file permissions, and the fixed values
// both remote systems expect.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the ticket system
	DefaultHTTPTimeout = 30 * time.Second

	// DialTimeout is the timeout for establishing the directory connection
	DialTimeout = 10 * time.Second

	// DefaultScriptTimeout bounds a single call into the mapping script
	DefaultScriptTimeout = 5 * time.Second

	// DefaultErrorExitDelay is how long the CLI waits before exiting after a failed run
	DefaultErrorExitDelay = 30 * time.Second

	// SyncTimeout is the upper bound for one reconciliation run
	SyncTimeout = 30 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// ReadOnlyFilePermissions is for the encryption key file (r--------)
	ReadOnlyFilePermissions = 0400
)

// Paging constants
const (
	// DefaultTicketPageSize is the per_page value used when listing ticket users and roles
	DefaultTicketPageSize = 100

	// DefaultDirectoryPageSize is the paged-results control size for directory searches
	DefaultDirectoryPageSize = 1000

	// MaxTicketPages guards against a ticket system that never returns an empty page
	MaxTicketPages = 100000
)

// Ticket system constants
const (
	// SuperuserID is the ticket user id that is never modified or deleted
	SuperuserID = 1

	// AdminRoleName is the role name that protects a user from deletion
	AdminRoleName = "Admin"

	// AgentRoleName is the role that is never carried over on update by default
	AgentRoleName = "Agent"

	// AnonymousEmailDomain is appended to the login to form the anonymized email
	AnonymousEmailDomain = "anonymous.net"

	// TicketServiceName is used in API errors and logs
	TicketServiceName = "zammad"
)

// Default values
const (
	// DefaultJobName names the watermark file and log context
	DefaultJobName = "ticket-users"

	// DefaultVarDir is where watermark files live
	DefaultVarDir = "var"

	// DefaultKeyFile is the encryption key file for stored secrets
	DefaultKeyFile = "secret.bin"

	// DefaultLoginAttribute is the directory attribute used as the user login
	DefaultLoginAttribute = "uid"

	// DefaultDirectoryFilter is used when no search filter is configured
	DefaultDirectoryFilter = "(objectClass=*)"

	// DefaultMappingFile is the mapping transform loaded when none is configured
	DefaultMappingFile = "mapping.js"

	// DefaultConfigName is the config file searched for in the working directory
	DefaultConfigName = "config"

	// WatermarkSuffix is appended to the job name for the watermark file
	WatermarkSuffix = "-lastsync.timestamp"
)

// Format constants
const (
	// TimeFormatGeneralized renders watermarks in directory generalized time, UTC with milliseconds
	TimeFormatGeneralized = "20060102150405.000Z"

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// Environment variable names
const (
	// EnvPrefix is the prefix for configuration overrides taken from the environment
	EnvPrefix = "DIRSYNC"

	// EnvLogLevel overrides the log level
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogFormat overrides the log format
	EnvLogFormat = "LOG_FORMAT"
)
