// Package ldapsource implements directory.Dialer over LDAP with the
// simple paged results control.
package ldapsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/directory"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
)

// Config holds the directory connection settings.
type Config struct {
	Host                 string
	Port                 int
	SSL                  bool
	TrustAllCertificates bool
	BindDN               string
	BindPassword         string
	Timeout              time.Duration
}

// URL returns the ldap:// or ldaps:// address for cfg.
func (cfg Config) URL() string {
	scheme, port := "ldap", cfg.Port
	if cfg.SSL {
		scheme = "ldaps"
	}
	if port == 0 {
		port = 389
		if cfg.SSL {
			port = 636
		}
	}
	return scheme + "://" + net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

// Dialer opens bound LDAP sessions.
type Dialer struct {
	cfg Config
}

var _ directory.Dialer = (*Dialer)(nil)

// New validates cfg and returns a Dialer.
func New(cfg Config) (*Dialer, error) {
	if cfg.Host == "" {
		return nil, errors.NewConfigError("ldap", "host.name is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DialTimeout
	}
	return &Dialer{cfg: cfg}, nil
}

// Dial connects and binds. An empty bind DN performs an anonymous bind.
func (d *Dialer) Dial(ctx context.Context) (directory.Session, error) {
	url := d.cfg.URL()
	logger := logging.FromContext(ctx).With().Str("url", url).Logger()

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: d.cfg.Timeout})}
	if d.cfg.SSL {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName:         d.cfg.Host,
			InsecureSkipVerify: d.cfg.TrustAllCertificates, //nolint:gosec // opt-in for self-signed directories
		}))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	if d.cfg.BindDN != "" {
		if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, errors.NewAuthenticationError("ldap", "simple-bind", "bind as "+d.cfg.BindDN+" failed", err)
		}
	}
	logger.Debug().Str("bind_dn", d.cfg.BindDN).Msg("Connected to directory")
	return &session{conn: conn}, nil
}

type session struct {
	conn *ldap.Conn
}

func (s *session) Search(ctx context.Context, req directory.SearchRequest) (*directory.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scope, err := ldapScope(req.Scope)
	if err != nil {
		return nil, err
	}

	paging := ldap.NewControlPaging(uint32(req.PageSize))
	if len(req.Cursor) > 0 {
		paging.SetCookie(req.Cursor)
	}

	res, err := s.conn.Search(ldap.NewSearchRequest(
		req.BaseDN,
		scope,
		ldap.NeverDerefAliases,
		0, 0, false,
		req.Filter,
		req.Attributes,
		[]ldap.Control{paging},
	))
	if err != nil {
		return nil, err
	}
	return pageFromResult(res), nil
}

func (s *session) Close() error {
	s.conn.Close()
	return nil
}

func ldapScope(s directory.Scope) (int, error) {
	switch s {
	case directory.ScopeSubtree, "":
		return ldap.ScopeWholeSubtree, nil
	case directory.ScopeOneLevel:
		return ldap.ScopeSingleLevel, nil
	case directory.ScopeBase:
		return ldap.ScopeBaseObject, nil
	}
	return 0, fmt.Errorf("unsupported scope %q", s)
}

// pageFromResult converts a search result and extracts the paging cookie.
func pageFromResult(res *ldap.SearchResult) *directory.Page {
	page := &directory.Page{Entries: make([]directory.Entry, 0, len(res.Entries))}
	for _, e := range res.Entries {
		attrs := make(map[string][]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Name] = a.Values
		}
		page.Entries = append(page.Entries, directory.Entry{DN: e.DN, Attributes: attrs})
	}
	if ctrl, ok := ldap.FindControl(res.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging); ok && len(ctrl.Cookie) > 0 {
		page.Cursor = ctrl.Cookie
	}
	return page
}
