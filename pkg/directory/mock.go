package directory

import (
	"context"
	"strconv"
	"sync"
)

// MemoryDialer is an in-memory directory for testing.
// Searches return Entries in pages of the requested size; Match, when set,
// filters entries per request. Every dial, search and close is recorded.
type MemoryDialer struct {
	Entries []Entry
	Match   func(req SearchRequest, e Entry) bool

	DialErr   error
	SearchErr error

	mu       sync.Mutex
	dials    int
	closes   int
	searches []SearchRequest
}

var _ Dialer = (*MemoryDialer)(nil)

// Dial opens a session over the in-memory entries.
func (m *MemoryDialer) Dial(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	m.dials++
	return &memorySession{dialer: m}, nil
}

// Dials returns how many sessions were opened.
func (m *MemoryDialer) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Closes returns how many sessions were closed.
func (m *MemoryDialer) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Searches returns every page request issued so far.
func (m *MemoryDialer) Searches() []SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchRequest(nil), m.searches...)
}

type memorySession struct {
	dialer *MemoryDialer
}

func (s *memorySession) Search(_ context.Context, req SearchRequest) (*Page, error) {
	m := s.dialer
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, req)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	var matched []Entry
	for _, e := range m.Entries {
		if m.Match == nil || m.Match(req, e) {
			matched = append(matched, e)
		}
	}

	offset := 0
	if len(req.Cursor) > 0 {
		n, err := strconv.Atoi(string(req.Cursor))
		if err != nil {
			return nil, err
		}
		offset = n
	}
	if offset >= len(matched) {
		return &Page{}, nil
	}
	end := len(matched)
	if req.PageSize > 0 && offset+req.PageSize < end {
		end = offset + req.PageSize
	}

	page := &Page{Entries: make([]Entry, 0, end-offset)}
	for _, e := range matched[offset:end] {
		page.Entries = append(page.Entries, project(e, req.Attributes))
	}
	if end < len(matched) {
		page.Cursor = []byte(strconv.Itoa(end))
	}
	return page, nil
}

func (s *memorySession) Close() error {
	s.dialer.mu.Lock()
	defer s.dialer.mu.Unlock()
	s.dialer.closes++
	return nil
}

// project keeps only the requested attributes, as a directory server would.
func project(e Entry, attrs []string) Entry {
	out := Entry{DN: e.DN, Attributes: make(map[string][]string, len(attrs))}
	for _, a := range attrs {
		if v := (Record{Attributes: e.Attributes}).GetAll(a); v != nil {
			out.Attributes[a] = v
		}
	}
	return out
}
