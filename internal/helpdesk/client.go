// Package helpdesk implements tickets.Client against the ticket system's REST API.
package helpdesk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agentstation/dirsync/internal/transport"
	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/tickets"
)

const (
	rolesPath = "/api/v1/roles"
	usersPath = "/api/v1/users"
	mePath    = "/api/v1/users/me"
)

// Config holds the connection settings.
type Config struct {
	BaseURL              string
	Token                string
	TrustAllCertificates bool
	Timeout              time.Duration
}

// Client talks to the ticket system.
type Client struct {
	transport *transport.Client
}

var _ tickets.Client = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config, opts ...transport.Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewConfigError("ticket", "base-url is required", nil)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, errors.NewConfigError("ticket", "base-url is not a valid URL", err)
	}
	if cfg.Token == "" {
		return nil, errors.NewConfigError("ticket", "token is required", nil)
	}
	base := []transport.Option{
		transport.WithService(constants.TicketServiceName),
		transport.WithTimeout(cfg.Timeout),
		transport.WithInsecureSkipVerify(cfg.TrustAllCertificates),
	}
	return &Client{
		transport: transport.New(cfg.BaseURL, &transport.TokenAuth{}, cfg.Token, append(base, opts...)...),
	}, nil
}

func pageQuery(page, perPage int) url.Values {
	return url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
}

// Roles lists one page of roles.
func (c *Client) Roles(ctx context.Context, page, perPage int) ([]tickets.Role, error) {
	var roles []tickets.Role
	if err := c.transport.JSON(ctx, http.MethodGet, rolesPath, pageQuery(page, perPage), nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// Users lists one page of users.
func (c *Client) Users(ctx context.Context, page, perPage int) ([]tickets.User, error) {
	var users []tickets.User
	if err := c.transport.JSON(ctx, http.MethodGet, usersPath, pageQuery(page, perPage), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser posts a new user.
func (c *Client) CreateUser(ctx context.Context, draft *tickets.Draft) (*tickets.User, error) {
	var user tickets.User
	if err := c.transport.JSON(ctx, http.MethodPost, usersPath, nil, draft, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the supplied fields of user id.
func (c *Client) UpdateUser(ctx context.Context, id int, draft *tickets.Draft) (*tickets.User, error) {
	var user tickets.User
	if err := c.transport.JSON(ctx, http.MethodPut, userPath(id), nil, draft, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AnonymizeUser overwrites the personal data of user id. The ticket system
// has a hard delete endpoint; it is deliberately not used.
func (c *Client) AnonymizeUser(ctx context.Context, id int, anon *tickets.AnonymousUser) (*tickets.User, error) {
	var user tickets.User
	if err := c.transport.JSON(ctx, http.MethodPut, userPath(id), nil, anon, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context) (*tickets.User, error) {
	var user tickets.User
	if err := c.transport.JSON(ctx, http.MethodGet, mePath, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func userPath(id int) string {
	return usersPath + "/" + strconv.Itoa(id)
}
