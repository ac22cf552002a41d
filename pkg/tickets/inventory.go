package tickets

import (
	"context"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
)

// Inventory is every role and user in the ticket system at run start.
type Inventory struct {
	Roles []Role
	Users []User
	Index *RoleIndex

	byLogin map[string]int
}

// User returns the user whose normalized login is login.
func (inv *Inventory) User(login string) (User, bool) {
	i, ok := inv.byLogin[login]
	if !ok {
		return User{}, false
	}
	return inv.Users[i], true
}

// LoadInventory pages through roles and users until an empty page.
// Any paging error aborts the load.
func LoadInventory(ctx context.Context, r Reader, perPage int) (*Inventory, error) {
	if perPage <= 0 {
		perPage = constants.DefaultTicketPageSize
	}
	logger := logging.FromContext(ctx)

	roles, err := collect(ctx, "roles", perPage, r.Roles)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("count", len(roles)).Msg("Loaded ticket roles")

	users, err := collect(ctx, "users", perPage, r.Users)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("count", len(users)).Msg("Loaded ticket users")

	inv := &Inventory{
		Roles:   roles,
		Users:   users,
		Index:   NewRoleIndex(roles),
		byLogin: make(map[string]int, len(users)),
	}
	for i, u := range users {
		login := directory.NormalizeLogin(u.Login)
		if prev, dup := inv.byLogin[login]; dup {
			logger.Warn().
				Str("login", login).
				Int("user_id", u.ID).
				Int("previous_id", users[prev].ID).
				Msg("Duplicate ticket login, keeping first user")
			continue
		}
		inv.byLogin[login] = i
	}
	return inv, nil
}

func collect[T any](ctx context.Context, resource string, perPage int, list func(context.Context, int, int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; page <= constants.MaxTicketPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := list(ctx, page, perPage)
		if err != nil {
			return nil, errors.WrapResource("fetch", resource, "", err)
		}
		if len(items) == 0 {
			return all, nil
		}
		all = append(all, items...)
		logging.FromContext(ctx).Trace().
			Str("resource", resource).
			Int("page", page).
			Int("items", len(items)).
			Msg("Fetched page")
	}
	return nil, errors.NewResourceError("fetch", resource, "", errors.New("page limit reached without an empty page"))
}
