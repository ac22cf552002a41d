// Package application defines the dependencies the dirsync commands take from
// the App. Commands accept Application rather than the concrete App so they can
// be tested with Mock.
package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/reconciler"
	"github.com/agentstation/dirsync/pkg/tickets"
	"github.com/agentstation/dirsync/pkg/watermark"
)

// Runner performs one reconciliation run. *reconciler.Engine implements it.
type Runner interface {
	Run(ctx context.Context) (*reconciler.Result, error)
}

// DirectoryLister reads the directory. *directory.Loader implements it.
type DirectoryLister interface {
	FetchIDs(ctx context.Context) (*directory.Snapshot, error)
	FetchFull(ctx context.Context, since watermark.Watermark) (*directory.Snapshot, error)
}

// TicketSystem is the read side of the ticket system plus a connectivity check.
type TicketSystem interface {
	tickets.Reader
	Me(ctx context.Context) (*tickets.User, error)
}

// Application is what commands need from the App.
type Application interface {
	// Engine builds a reconciliation engine from the loaded configuration.
	// opts are applied after the configured options.
	Engine(opts ...reconciler.Option) (Runner, error)

	// Directory returns the configured directory loader.
	Directory() (DirectoryLister, error)

	// Transform loads the configured mapping.
	Transform() (mapping.Transform, error)

	// Settings returns the effective configuration keyed like the config
	// file, with secrets masked.
	Settings() map[string]any

	// Tickets returns the configured ticket system client.
	Tickets() (TicketSystem, error)

	// Cipher returns the secrets cipher, creating the key file if needed.
	Cipher(ctx context.Context) (*secrets.Cipher, error)

	// ErrorExitDelay is how long to wait before exiting after a failed sync.
	ErrorExitDelay() time.Duration

	// PageSize is the per_page value for ticket listings.
	PageSize() int

	Logger() *zerolog.Logger
	OutputFormat() string
	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
