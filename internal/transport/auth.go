package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, secret string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// TokenAuth implements the "Token token=" scheme used by the ticket system
// for personal access tokens.
type TokenAuth struct{}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Token token="+secret)
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Bearer "+secret)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, secret string) {
	req.Header.Set(a.Header, secret)
}

// ForScheme returns the authenticator for a configured scheme name.
// Unknown or empty names use TokenAuth.
func ForScheme(scheme string) Authenticator {
	switch scheme {
	case "none":
		return &NoAuth{}
	case "bearer":
		return &BearerAuth{}
	default:
		return &TokenAuth{}
	}
}
