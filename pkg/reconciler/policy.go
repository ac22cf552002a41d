package reconciler

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/tickets"
)

// policy holds the protection and role rules of one run, resolved against the
// ticket roles loaded at run start.
type policy struct {
	protected   map[int]bool
	defaultRole string
	preserve    bool
	tag         string
	unpreserved []string
	index       *tickets.RoleIndex
}

func newPolicy(ctx context.Context, o *options, index *tickets.RoleIndex) (*policy, error) {
	logger := logging.FromContext(ctx)
	p := &policy{
		protected:   make(map[int]bool),
		defaultRole: o.defaultRole,
		preserve:    o.preserveRoles,
		tag:         o.tag,
		unpreserved: o.unpreservedRoles,
		index:       index,
	}

	// Every protected role must resolve before anything is mutated.
	for _, id := range o.protectedRoleIDs {
		if _, ok := index.NameOf(id); !ok {
			return nil, errors.NewConfigError("sync",
				"protected role id "+strconv.Itoa(id)+" does not exist in the ticket system",
				errors.NewNotFoundError("role", strconv.Itoa(id)))
		}
		p.protected[id] = true
	}
	for _, name := range o.protectedRoleNames {
		id, ok := index.IDOf(name)
		if !ok {
			return nil, errors.NewConfigError("sync",
				"protected role "+strconv.Quote(name)+" does not exist in the ticket system",
				errors.NewNotFoundError("role", name))
		}
		p.protected[id] = true
	}

	if p.defaultRole == "" && o.defaultRoleID != 0 {
		name, ok := index.NameOf(o.defaultRoleID)
		if !ok {
			return nil, errors.NewConfigError("sync",
				"default role id "+strconv.Itoa(o.defaultRoleID)+" does not exist in the ticket system",
				errors.NewNotFoundError("role", strconv.Itoa(o.defaultRoleID)))
		}
		p.defaultRole = name
	}
	if p.defaultRole != "" {
		if _, ok := index.IDOf(p.defaultRole); !ok {
			logger.Warn().Str("role", p.defaultRole).Msg("Default role not found in ticket roles")
		}
	}

	logger.Debug().
		Ints("protected_role_ids", p.protectedIDs()).
		Str("default_role", p.defaultRole).
		Bool("preserve_roles", p.preserve).
		Str("tag", p.tag).
		Msg("Resolved sync policy")
	return p, nil
}

// isProtected reports whether u must never be updated or deleted.
func (p *policy) isProtected(u tickets.User) bool {
	if u.ID == constants.SuperuserID {
		return true
	}
	for _, id := range u.RoleIDs {
		if p.protected[id] {
			return true
		}
	}
	return false
}

// seed returns the draft for login with the default role applied.
func (p *policy) seed(login string) *tickets.Draft {
	d := tickets.NewDraft(login)
	if p.defaultRole != "" {
		d.AddRole(p.defaultRole)
	}
	return d
}

// preserveRoles re-adds the existing user's roles that the syncer does not own.
func (p *policy) preserveRoles(ctx context.Context, d *tickets.Draft, existing tickets.User) {
	if !p.preserve {
		return
	}
	for _, id := range existing.RoleIDs {
		name, ok := p.index.NameOf(id)
		if !ok {
			logging.FromContext(ctx).Warn().
				Int("role_id", id).
				Msg("Existing user holds an unknown role, not preserved")
			continue
		}
		if p.owns(name) {
			continue
		}
		d.AddRole(name)
	}
}

// owns reports whether role name is managed by the syncer and therefore not
// carried over from the existing user.
func (p *policy) owns(name string) bool {
	if p.defaultRole != "" && strings.EqualFold(name, p.defaultRole) {
		return true
	}
	if p.tag != "" && strings.HasPrefix(name, p.tag) {
		return true
	}
	for _, u := range p.unpreserved {
		if strings.EqualFold(name, u) {
			return true
		}
	}
	return false
}

func (p *policy) protectedIDs() []int {
	ids := make([]int, 0, len(p.protected))
	for id := range p.protected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
