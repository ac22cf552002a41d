// Package directory loads snapshots of user entries from a directory service.
//
// The loader speaks to the directory only through the Dialer and Session
// contracts defined here; internal/ldapsource provides the LDAP implementation.
// Every snapshot is keyed by normalized login so it can be joined against the
// ticket system's users.
package directory

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeLogin trims surrounding whitespace and lower-cases s.
// Both sides of the login join must go through this function.
func NormalizeLogin(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Record is one directory entry as seen by a sync run. It is immutable once loaded.
type Record struct {
	Login      string
	DN         string
	Attributes map[string][]string
}

// Get returns the first value of the named attribute, or "" if absent.
// Attribute names match case-insensitively.
func (r Record) Get(name string) string {
	if v := r.GetAll(name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// GetAll returns every value of the named attribute.
func (r Record) GetAll(name string) []string {
	if v, ok := r.Attributes[name]; ok {
		return v
	}
	for k, v := range r.Attributes {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// Snapshot is the result of one directory fetch, keyed by normalized login.
type Snapshot struct {
	Records map[string]Record
	// Skipped counts entries dropped because they had no login value.
	Skipped int
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Records: make(map[string]Record)}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Has reports whether login is present.
func (s *Snapshot) Has(login string) bool {
	_, ok := s.Records[login]
	return ok
}

// Logins returns the snapshot's logins in sorted order.
func (s *Snapshot) Logins() []string {
	logins := make([]string, 0, len(s.Records))
	for login := range s.Records {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins
}
