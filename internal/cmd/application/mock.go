package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/dirsync/internal/secrets"
	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/mapping"
	"github.com/agentstation/dirsync/pkg/reconciler"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &application.Mock{
//	    TicketsFunc: func() (application.TicketSystem, error) {
//	        return tickets.NewMemoryClient(roles, users), nil
//	    },
//	}
//	cmd := check.NewCommand(mock)
type Mock struct {
	EngineFunc         func(opts ...reconciler.Option) (Runner, error)
	DirectoryFunc      func() (DirectoryLister, error)
	TransformFunc      func() (mapping.Transform, error)
	SettingsFunc       func() map[string]any
	TicketsFunc        func() (TicketSystem, error)
	CipherFunc         func(ctx context.Context) (*secrets.Cipher, error)
	ErrorExitDelayFunc func() time.Duration
	LoggerFunc         func() *zerolog.Logger
	OutputFormatFunc   func() string
	VersionFunc        func() string
}

// Engine returns a runner using the mock function or nil.
func (m *Mock) Engine(opts ...reconciler.Option) (Runner, error) {
	if m.EngineFunc != nil {
		return m.EngineFunc(opts...)
	}
	return nil, nil
}

// Directory returns a lister using the mock function or nil.
func (m *Mock) Directory() (DirectoryLister, error) {
	if m.DirectoryFunc != nil {
		return m.DirectoryFunc()
	}
	return nil, nil
}

// Transform returns a transform using the mock function or nil.
func (m *Mock) Transform() (mapping.Transform, error) {
	if m.TransformFunc != nil {
		return m.TransformFunc()
	}
	return nil, nil
}

// Settings returns settings using the mock function or an empty map.
func (m *Mock) Settings() map[string]any {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return map[string]any{}
}

// Tickets returns a ticket system using the mock function or nil.
func (m *Mock) Tickets() (TicketSystem, error) {
	if m.TicketsFunc != nil {
		return m.TicketsFunc()
	}
	return nil, nil
}

// Cipher returns a cipher using the mock function or nil.
func (m *Mock) Cipher(ctx context.Context) (*secrets.Cipher, error) {
	if m.CipherFunc != nil {
		return m.CipherFunc(ctx)
	}
	return nil, nil
}

// ErrorExitDelay returns the delay using the mock function or zero.
func (m *Mock) ErrorExitDelay() time.Duration {
	if m.ErrorExitDelayFunc != nil {
		return m.ErrorExitDelayFunc()
	}
	return 0
}

// PageSize returns the default ticket page size.
func (m *Mock) PageSize() int {
	return constants.DefaultTicketPageSize
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
