package transport

import (
	"net/http"
	"testing"
)

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name   string
		auth   Authenticator
		header string
		want   string
	}{
		{"token", &TokenAuth{}, "Authorization", "Token token=secret"},
		{"bearer", &BearerAuth{}, "Authorization", "Bearer secret"},
		{"custom header", &HeaderAuth{Header: "X-API-Key"}, "X-API-Key", "secret"},
		{"none", &NoAuth{}, "Authorization", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			tt.auth.Apply(req, "secret")
			if got := req.Header.Get(tt.header); got != tt.want {
				t.Errorf("%s header = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestForScheme(t *testing.T) {
	if _, ok := ForScheme("").(*TokenAuth); !ok {
		t.Error("empty scheme should use TokenAuth")
	}
	if _, ok := ForScheme("bearer").(*BearerAuth); !ok {
		t.Error("bearer scheme should use BearerAuth")
	}
	if _, ok := ForScheme("none").(*NoAuth); !ok {
		t.Error("none scheme should use NoAuth")
	}
}
