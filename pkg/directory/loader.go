package directory

import (
	"context"
	"slices"
	"strings"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
	"github.com/agentstation/dirsync/pkg/watermark"
)

// FilterPlaceholder is replaced by the watermark in the filter template.
const FilterPlaceholder = "{0}"

// Query describes which entries a Loader fetches.
type Query struct {
	BaseDN string
	Scope  Scope
	// FilterTemplate may contain FilterPlaceholder, e.g. (&(objectClass=person)(modifyTimestamp>={0})).
	FilterTemplate string
	LoginAttribute string
	Attributes     []string
	PageSize       int
}

// Loader fetches directory snapshots.
type Loader struct {
	dialer Dialer
	query  Query
}

// NewLoader returns a Loader for q, filling in defaults for unset fields.
func NewLoader(dialer Dialer, q Query) *Loader {
	if q.Scope == "" {
		q.Scope = ScopeSubtree
	}
	if q.FilterTemplate == "" {
		q.FilterTemplate = constants.DefaultDirectoryFilter
	}
	if q.LoginAttribute == "" {
		q.LoginAttribute = constants.DefaultLoginAttribute
	}
	if q.PageSize <= 0 {
		q.PageSize = constants.DefaultDirectoryPageSize
	}
	return &Loader{dialer: dialer, query: q}
}

// BuildFilter substitutes the watermark into template.
func BuildFilter(template string, since watermark.Watermark) string {
	return strings.ReplaceAll(template, FilterPlaceholder, since.String())
}

// FetchIDs lists every login in the directory. Records carry no attributes
// beyond the login, and the query always starts from the zero watermark so
// the result is the complete population.
func (l *Loader) FetchIDs(ctx context.Context) (*Snapshot, error) {
	ctx = logging.WithOperation(ctx, "fetch_ids")
	return l.fetch(ctx, watermark.Zero(), []string{l.query.LoginAttribute})
}

// FetchFull returns records changed since the watermark with the configured attributes.
func (l *Loader) FetchFull(ctx context.Context, since watermark.Watermark) (*Snapshot, error) {
	ctx = logging.WithOperation(ctx, "fetch_full")
	attrs := l.query.Attributes
	if !containsFold(attrs, l.query.LoginAttribute) {
		attrs = append(slices.Clone(attrs), l.query.LoginAttribute)
	}
	return l.fetch(ctx, since, attrs)
}

func (l *Loader) fetch(ctx context.Context, since watermark.Watermark, attrs []string) (*Snapshot, error) {
	logger := logging.FromContext(ctx)

	session, err := l.dialer.Dial(ctx)
	if err != nil {
		return nil, errors.WrapResource("dial", "directory", "", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close directory session")
		}
	}()

	req := SearchRequest{
		BaseDN:     l.query.BaseDN,
		Scope:      l.query.Scope,
		Filter:     BuildFilter(l.query.FilterTemplate, since),
		Attributes: attrs,
		PageSize:   l.query.PageSize,
	}
	logger.Debug().
		Str("base_dn", req.BaseDN).
		Str("filter", req.Filter).
		Strs("attributes", req.Attributes).
		Msg("Searching directory")

	snap := NewSnapshot()
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := session.Search(ctx, req)
		if err != nil {
			return nil, errors.WrapResource("search", "directory", req.BaseDN, err)
		}
		pages++
		if page == nil || len(page.Entries) == 0 {
			break
		}
		for _, entry := range page.Entries {
			l.add(ctx, snap, entry)
		}
		if len(page.Cursor) == 0 {
			break
		}
		req.Cursor = page.Cursor
	}

	logger.Info().
		Int("entries", snap.Len()).
		Int("skipped", snap.Skipped).
		Int("pages", pages).
		Str("since", since.String()).
		Msg("Loaded directory snapshot")
	return snap, nil
}

func (l *Loader) add(ctx context.Context, snap *Snapshot, entry Entry) {
	rec := Record{DN: entry.DN, Attributes: entry.Attributes}
	raw := rec.Get(l.query.LoginAttribute)
	login := NormalizeLogin(raw)
	if login == "" {
		logging.FromContext(ctx).Warn().
			Str("dn", entry.DN).
			Str("attribute", l.query.LoginAttribute).
			Msg("Directory entry has no login attribute, skipping")
		snap.Skipped++
		return
	}
	if prev, dup := snap.Records[login]; dup {
		logging.FromContext(ctx).Warn().
			Str("login", login).
			Str("dn", entry.DN).
			Str("previous_dn", prev.DN).
			Msg("Duplicate login in directory, keeping last entry")
	}
	rec.Login = login
	snap.Records[login] = rec
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
