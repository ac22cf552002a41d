package directory

import (
	"context"
	"fmt"
	"strings"
)

// Scope selects how deep a search descends below the base DN.
type Scope string

// Supported search scopes.
const (
	ScopeSubtree  Scope = "sub"
	ScopeOneLevel Scope = "one"
	ScopeBase     Scope = "base"
)

// ParseScope converts a configured scope name. An empty name means subtree.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sub", "subtree", "wholesubtree":
		return ScopeSubtree, nil
	case "one", "onelevel", "singlelevel":
		return ScopeOneLevel, nil
	case "base", "baseobject":
		return ScopeBase, nil
	}
	return "", fmt.Errorf("unknown search scope %q", s)
}

// SearchRequest is one page request of a paged search.
type SearchRequest struct {
	BaseDN     string
	Scope      Scope
	Filter     string
	Attributes []string
	PageSize   int
	// Cursor resumes a paged search; nil requests the first page.
	Cursor []byte
}

// Entry is a raw search result.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Page is one page of search results. An empty Cursor means no further pages.
type Page struct {
	Entries []Entry
	Cursor  []byte
}

// Session is an authenticated directory connection.
type Session interface {
	Search(ctx context.Context, req SearchRequest) (*Page, error)
	Close() error
}

// Dialer opens directory sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
