package tickets

import "context"

// Reader lists roles and users page by page. Pages are 1-based; an empty page
// marks the end of the listing.
type Reader interface {
	Roles(ctx context.Context, page, perPage int) ([]Role, error)
	Users(ctx context.Context, page, perPage int) ([]User, error)
}

// Writer issues user mutations.
type Writer interface {
	CreateUser(ctx context.Context, draft *Draft) (*User, error)
	UpdateUser(ctx context.Context, id int, draft *Draft) (*User, error)
	AnonymizeUser(ctx context.Context, id int, anon *AnonymousUser) (*User, error)
}

// Client is the ticket system surface a sync run needs.
type Client interface {
	Reader
	Writer
}
