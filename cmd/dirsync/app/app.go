// Package app provides the application context and dependency management
// for the dirsync CLI. It centralizes configuration, logging, and the
// lazily constructed directory and ticket system clients.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/internal/cmd/application"
	"github.com/agentstation/dirsync/internal/cmd/output"
	"github.com/agentstation/dirsync/internal/helpdesk"
	"github.com/agentstation/dirsync/internal/ldapsource"
	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/reconciler"
	"github.com/agentstation/dirsync/pkg/watermark"
)

// App represents the dirsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Lazily initialized collaborators
	mu      sync.Mutex
	cipher  *secrets.Cipher
	tickets *helpdesk.Client
	loader  *directory.Loader
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// Configuration is loaded from the standard locations and can be replaced
// using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format, detecting table or
// JSON from the terminal when none is set.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Format))
}

// PageSize returns the per_page value for ticket listings.
func (a *App) PageSize() int {
	return a.config.Ticket.PageSize
}

// ErrorExitDelay returns how long to wait before exiting after a failed sync.
func (a *App) ErrorExitDelay() time.Duration {
	return a.config.Sync.ErrorExitDelay
}

// Cipher returns the secrets cipher, creating the key file on first use.
func (a *App) Cipher(ctx context.Context) (*secrets.Cipher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cipherLocked(ctx)
}

func (a *App) cipherLocked(ctx context.Context) (*secrets.Cipher, error) {
	if a.cipher != nil {
		return a.cipher, nil
	}
	c, err := secrets.LoadOrCreate(ctx, a.config.Secrets.KeyFile)
	if err != nil {
		return nil, err
	}
	a.cipher = c
	return c, nil
}

// reveal decrypts value when it carries the encrypted prefix.
// The key file is only touched for encrypted values.
func (a *App) reveal(field, value string) (string, error) {
	if !secrets.IsEncrypted(value) {
		return value, nil
	}
	ctx := logging.WithLogger(context.Background(), a.logger)
	c, err := a.cipherLocked(ctx)
	if err != nil {
		return "", err
	}
	plain, err := c.Decrypt(value)
	if err != nil {
		return "", errors.NewConfigError(field, "cannot decrypt value", err)
	}
	return plain, nil
}

// Tickets returns the ticket system client, creating it lazily.
func (a *App) Tickets() (application.TicketSystem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	client, err := a.ticketsLocked()
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *App) ticketsLocked() (*helpdesk.Client, error) {
	if a.tickets != nil {
		return a.tickets, nil
	}
	cfg := a.config.Ticket
	token, err := a.reveal("ticket.token", cfg.Token)
	if err != nil {
		return nil, err
	}
	client, err := helpdesk.New(helpdesk.Config{
		BaseURL:              cfg.BaseURL,
		Token:                token,
		TrustAllCertificates: cfg.TrustAllCertificates,
		Timeout:              cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.tickets = client
	return client, nil
}

// Directory returns the directory loader, creating it lazily.
func (a *App) Directory() (application.DirectoryLister, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	loader, err := a.loaderLocked()
	if err != nil {
		return nil, err
	}
	return loader, nil
}

func (a *App) loaderLocked() (*directory.Loader, error) {
	if a.loader != nil {
		return a.loader, nil
	}
	cfg := a.config.LDAP
	password, err := a.reveal("ldap.bind.password", cfg.BindPassword)
	if err != nil {
		return nil, err
	}
	scope, err := directory.ParseScope(cfg.Scope)
	if err != nil {
		return nil, errors.NewConfigError("ldap.scope", err.Error(), errors.ErrInvalidInput)
	}
	dialer, err := ldapsource.New(ldapsource.Config{
		Host:                 cfg.Host,
		Port:                 cfg.Port,
		SSL:                  cfg.SSL,
		TrustAllCertificates: cfg.TrustAllCertificates,
		BindDN:               cfg.BindDN,
		BindPassword:         password,
	})
	if err != nil {
		return nil, err
	}
	a.loader = directory.NewLoader(dialer, directory.Query{
		BaseDN:         cfg.BaseDN,
		Scope:          scope,
		FilterTemplate: cfg.Filter,
		LoginAttribute: cfg.LoginAttribute,
		Attributes:     cfg.Attributes,
		PageSize:       cfg.PageSize,
	})
	return a.loader, nil
}

// Engine builds a reconciliation engine from the configuration.
// opts are applied after the configured options.
func (a *App) Engine(opts ...reconciler.Option) (application.Runner, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	client, err := a.ticketsLocked()
	if err != nil {
		return nil, err
	}
	loader, err := a.loaderLocked()
	if err != nil {
		return nil, err
	}

	transform, err := a.loadTransform()
	if err != nil {
		return nil, err
	}

	engine, err := reconciler.New(client, loader, transform, watermark.NewFileStore(a.config.Sync.VarDir),
		append(a.engineOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// engineOptions converts the sync configuration into engine options.
func (a *App) engineOptions() []reconciler.Option {
	cfg := a.config.Sync
	opts := []reconciler.Option{
		reconciler.WithJobName(cfg.JobName),
		reconciler.WithDefaultRole(cfg.DefaultRole),
		reconciler.WithDefaultRoleID(cfg.DefaultRoleID),
		reconciler.WithProtectedRoleIDs(cfg.ProtectedRoleIDs...),
		reconciler.WithProtectedRoleNames(cfg.ProtectedRoleNames...),
		reconciler.WithRolePreservation(cfg.PreserveUntaggedRoles),
		reconciler.WithTag(cfg.Tag),
		reconciler.WithUnpreservedRoles(cfg.UnpreservedRoles...),
		reconciler.WithPageSize(a.config.Ticket.PageSize),
	}
	return opts
}

// Transform loads the configured mapping. Each call reads the file again.
func (a *App) Transform() (mapping.Transform, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadTransform()
}

func (a *App) loadTransform() (mapping.Transform, error) {
	cfg := a.config.Sync
	transform, err := mapping.Load(mapping.Kind(cfg.MappingType), cfg.MappingFile, cfg.MappingTimeout)
	if err != nil {
		return nil, errors.NewConfigError("sync.mapping", "cannot load "+cfg.MappingFile, err)
	}
	return transform, nil
}

// Shutdown releases resources held by the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tickets = nil
	a.loader = nil
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
