package tickets

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"github.com/agentstation/dirsync/pkg/errors"
)

// Call records one mutation received by a MemoryClient.
type Call struct {
	Action string // "create", "update", "anonymize"
	ID     int
	Login  string
	Body   []byte
}

// MemoryClient is an in-memory ticket system for testing.
// Created users get ids above the highest seeded id; Fail, when set, may
// reject a mutation before it is applied.
type MemoryClient struct {
	Fail func(action, login string) error

	mu     sync.Mutex
	roles  []Role
	users  map[int]User
	nextID int
	calls  []Call
	lists  int
}

var _ Client = (*MemoryClient)(nil)

// NewMemoryClient seeds a client with roles and users.
func NewMemoryClient(roles []Role, users []User) *MemoryClient {
	m := &MemoryClient{roles: roles, users: make(map[int]User, len(users)), nextID: 1}
	for _, u := range users {
		m.users[u.ID] = u
		if u.ID >= m.nextID {
			m.nextID = u.ID + 1
		}
	}
	return m
}

// Roles returns one page of roles.
func (m *MemoryClient) Roles(_ context.Context, page, perPage int) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	return paginate(m.roles, page, perPage), nil
}

// Users returns one page of users ordered by id.
func (m *MemoryClient) Users(_ context.Context, page, perPage int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	return paginate(m.sortedUsers(), page, perPage), nil
}

// CreateUser stores a new user built from draft.
func (m *MemoryClient) CreateUser(_ context.Context, draft *Draft) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("create", 0, draft.Login, draft); err != nil {
		return nil, err
	}
	u := m.apply(User{ID: m.nextID}, draft)
	m.nextID++
	m.users[u.ID] = u
	return &u, nil
}

// UpdateUser replaces the supplied fields of user id.
func (m *MemoryClient) UpdateUser(_ context.Context, id int, draft *Draft) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("update", id, draft.Login, draft); err != nil {
		return nil, err
	}
	existing, ok := m.users[id]
	if !ok {
		return nil, errors.NewNotFoundError("user", strconv.Itoa(id))
	}
	u := m.apply(existing, draft)
	m.users[id] = u
	return &u, nil
}

// AnonymizeUser overwrites user id with anon.
func (m *MemoryClient) AnonymizeUser(_ context.Context, id int, anon *AnonymousUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("anonymize", id, anon.Login, anon); err != nil {
		return nil, err
	}
	if _, ok := m.users[id]; !ok {
		return nil, errors.NewNotFoundError("user", strconv.Itoa(id))
	}
	u := User{
		ID:        id,
		Login:     anon.Login,
		Firstname: anon.Firstname,
		Lastname:  anon.Lastname,
		Email:     anon.Email,
	}
	m.users[id] = u
	return &u, nil
}

// Calls returns every mutation received, in order.
func (m *MemoryClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsFor returns the mutations with the given action.
func (m *MemoryClient) CallsFor(action string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// User returns the stored user with id.
func (m *MemoryClient) User(id int) (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

// ListCalls returns how many page requests were served.
func (m *MemoryClient) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func (m *MemoryClient) record(action string, id int, login string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if m.Fail != nil {
		if err := m.Fail(action, login); err != nil {
			return err
		}
	}
	m.calls = append(m.calls, Call{Action: action, ID: id, Login: login, Body: body})
	return nil
}

func (m *MemoryClient) apply(u User, d *Draft) User {
	u.Login = d.Login
	if d.Firstname != "" {
		u.Firstname = d.Firstname
	}
	if d.Lastname != "" {
		u.Lastname = d.Lastname
	}
	if d.Email != "" {
		u.Email = d.Email
	}
	if d.Department != "" {
		u.Department = d.Department
	}
	if d.Active != nil {
		u.Active = *d.Active
	}
	if d.Roles != nil {
		u.Roles = append([]string(nil), d.Roles...)
		u.RoleIDs = nil
		idx := NewRoleIndex(m.roles)
		for _, name := range d.Roles {
			if id, ok := idx.IDOf(name); ok {
				u.RoleIDs = append(u.RoleIDs, id)
			}
		}
	}
	return u
}

func (m *MemoryClient) sortedUsers() []User {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate[T any](items []T, page, perPage int) []T {
	if page < 1 || perPage < 1 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := min(start+perPage, len(items))
	return append([]T(nil), items[start:end]...)
}
