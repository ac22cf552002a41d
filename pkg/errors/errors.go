// Package errors provides custom error types for the dirsync system.
// These errors enable programmatic error checking across the directory,
// ticket-system and reconciliation layers, and carry enough context for
// the CLI to decide between a clean exit and an aborted run.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// As is an alias for the standard library errors.As.
var As = errors.As

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the dirsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the remote system rejected our credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable indicates that a remote system is temporarily unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrCorruptWatermark indicates the persisted watermark cannot be parsed
	ErrCorruptWatermark = errors.New("corrupt watermark")

	// ErrMutationFailed indicates a create, update or delete was rejected
	ErrMutationFailed = errors.New("mutation failed")

	// ErrContractViolation indicates a mapping transform broke its contract
	ErrContractViolation = errors.New("transform contract violation")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error response from the ticket system REST API
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s %s (status %d): %s", e.Service, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s %s: %s", e.Service, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return target == ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service, endpoint string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MutationError represents a rejected create, update or delete of a ticket user.
type MutationError struct {
	Action string // "create", "update", "delete"
	Login  string
	ID     int
	Err    error
}

// Error implements the error interface
func (e *MutationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s of user %s (id %d) failed: %v", e.Action, e.Login, e.ID, e.Err)
	}
	return fmt.Sprintf("%s of user %s failed: %v", e.Action, e.Login, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MutationError) Is(target error) bool {
	return target == ErrMutationFailed
}

// NewMutationError creates a new MutationError
func NewMutationError(action, login string, id int, err error) *MutationError {
	return &MutationError{
		Action: action,
		Login:  login,
		ID:     id,
		Err:    err,
	}
}

// CorruptWatermarkError reports a watermark file whose content cannot be parsed.
// It is irrecoverable; a run must stop before touching any remote system.
type CorruptWatermarkError struct {
	Path    string
	Content string
	Err     error
}

// Error implements the error interface
func (e *CorruptWatermarkError) Error() string {
	return fmt.Sprintf("corrupt watermark in %s (%q): %v", e.Path, e.Content, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CorruptWatermarkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CorruptWatermarkError) Is(target error) bool {
	return target == ErrCorruptWatermark
}

// ContractError reports a mapping transform that modified a field it does not own.
type ContractError struct {
	Mode    string
	Login   string
	Message string
}

// Error implements the error interface
func (e *ContractError) Error() string {
	return fmt.Sprintf("mapping %s for %s: %s", e.Mode, e.Login, e.Message)
}

// Is implements errors.Is support
func (e *ContractError) Is(target error) bool {
	return target == ErrContractViolation
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if an error is an authentication/authorization failure
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnavailable checks if an error indicates remote unavailability
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsCorruptWatermark checks if an error is a watermark corruption error
func IsCorruptWatermark(err error) bool {
	return errors.Is(err, ErrCorruptWatermark)
}

// IsMutationFailed checks if an error is a rejected mutation
func IsMutationFailed(err error) bool {
	return errors.Is(err, ErrMutationFailed)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "generalized-time", "javascript"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "fetch", "search", "bind", "dial"
	Resource  string // "roles", "users", "directory", "watermark"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents a failed bind or rejected API credential
type AuthenticationError struct {
	Service string
	Method  string // "simple-bind", "token"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(service, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Service: service,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
