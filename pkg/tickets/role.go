package tickets

import (
	"strings"
	"time"
)

// Role is a ticket system role.
type Role struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Active          bool      `json:"active"`
	DefaultAtSignup bool      `json:"default_at_signup"`
	Note            string    `json:"note,omitempty"`
	PermissionIDs   []int     `json:"permission_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// RoleIndex resolves role ids and names. It is built once per run.
type RoleIndex struct {
	byID   map[int]Role
	byName map[string]Role
}

// NewRoleIndex indexes roles by id and by lower-cased name.
func NewRoleIndex(roles []Role) *RoleIndex {
	idx := &RoleIndex{
		byID:   make(map[int]Role, len(roles)),
		byName: make(map[string]Role, len(roles)),
	}
	for _, r := range roles {
		idx.byID[r.ID] = r
		key := strings.ToLower(r.Name)
		if _, dup := idx.byName[key]; !dup {
			idx.byName[key] = r
		}
	}
	return idx
}

// NameOf returns the name of role id.
func (idx *RoleIndex) NameOf(id int) (string, bool) {
	r, ok := idx.byID[id]
	if !ok {
		return "", false
	}
	return r.Name, true
}

// IDOf returns the id of the role called name, compared case-insensitively.
func (idx *RoleIndex) IDOf(name string) (int, bool) {
	r, ok := idx.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, false
	}
	return r.ID, true
}

// Get returns the role with id.
func (idx *RoleIndex) Get(id int) (Role, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// Len returns the number of indexed roles.
func (idx *RoleIndex) Len() int {
	return len(idx.byID)
}
